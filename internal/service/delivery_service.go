package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk-sla/internal/config"
	"github.com/spec-kit/servicedesk-sla/internal/events"
)

// DeliveryService forwards SLA transition events to outbound channels.
// Actual push/email delivery is owned by other systems; the hooks here are
// stubs that log what would be sent.
type DeliveryService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewDeliveryService creates the service.
func NewDeliveryService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *DeliveryService {
	return &DeliveryService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *DeliveryService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSlaResolutionBreached, n.handleResolutionBreached)
	n.dispatcher.Subscribe(events.EventSlaResponseBreached, n.handleResponseBreached)
	n.dispatcher.Subscribe(events.EventSlaEscalated, n.handleEscalated)
	n.dispatcher.Subscribe(events.EventSlaAtRisk, n.handleAtRisk)
}

func (n *DeliveryService) handleResolutionBreached(ctx context.Context, event events.Event) error {
	n.logger.Info("SlaResolutionBreached", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *DeliveryService) handleResponseBreached(ctx context.Context, event events.Event) error {
	n.logger.Info("SlaResponseBreached", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *DeliveryService) handleEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("SlaEscalated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *DeliveryService) handleAtRisk(ctx context.Context, event events.Event) error {
	n.logger.Info("SlaAtRisk", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *DeliveryService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *DeliveryService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
