package worker

import (
	"github.com/spec-kit/servicedesk-sla/internal/service"
)

// StartDeliveryWorker registers outbound delivery handlers.
func StartDeliveryWorker(deliveryService *service.DeliveryService) {
	if deliveryService == nil {
		return
	}
	deliveryService.RegisterHandlers()
}
