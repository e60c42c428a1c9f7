package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk-sla/internal/config"
	"github.com/spec-kit/servicedesk-sla/internal/service"
)

// StartSlaScheduler spawns an in-process ticker that drives SLA passes when
// no external cron is configured. Disabled by default; the pass lock keeps
// it harmless to run alongside the HTTP trigger.
func StartSlaScheduler(ctx context.Context, monitor *service.MonitorService, cfg config.SlaConfig, logger *zap.Logger) {
	if !cfg.SchedulerEnabled {
		return
	}

	go func() {
		ticker := time.NewTicker(cfg.SchedulerInterval())
		defer ticker.Stop()

		logger.Info("sla scheduler started", zap.Duration("interval", cfg.SchedulerInterval()))
		for {
			select {
			case <-ctx.Done():
				logger.Info("sla scheduler stopped")
				return
			case <-ticker.C:
				if _, err := monitor.RunPass(ctx, time.Now()); err != nil {
					if errors.Is(err, service.ErrPassInProgress) {
						logger.Debug("sla pass skipped; another invocation holds the lock")
						continue
					}
					logger.Error("scheduled sla pass failed", zap.Error(err))
				}
			}
		}
	}()
}
