package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	ttlcache "github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk-sla/internal/config"
	"github.com/spec-kit/servicedesk-sla/internal/domain"
	"github.com/spec-kit/servicedesk-sla/internal/events"
	"github.com/spec-kit/servicedesk-sla/internal/observability"
	"github.com/spec-kit/servicedesk-sla/internal/repository"
	"github.com/spec-kit/servicedesk-sla/internal/sla"
)

const (
	passLockKey = "sla:pass:lock"
	lastPassKey = "sla:last_pass"

	lastPassTTL = 24 * time.Hour
)

// ErrPassInProgress is returned when another invocation holds the pass lock.
var ErrPassInProgress = errors.New("sla pass already in progress")

// maxConsecutiveErrors distinguishes isolated failures from a store that has
// gone away mid-pass; the latter aborts the remainder.
const maxConsecutiveErrors = 5

// errBadRecord marks per-ticket data problems (a dangling or invalid
// template reference). These are recorded in the summary but say nothing
// about the health of the store, so they never count toward the abort
// threshold; a single deleted template can dangle under many adjacent
// trackings of the same service.
var errBadRecord = errors.New("bad tracking record")

// PassError records one ticket that could not be evaluated.
type PassError struct {
	TicketID   string `json:"ticketId"`
	TrackingID string `json:"trackingId,omitempty"`
	Reason     string `json:"reason"`
}

// PassSummary aggregates the outcome of one scheduler pass. Breached,
// Escalated and ResponseBreached count first-time transitions won by this
// pass, so an immediate re-run reports zeros for all three.
type PassSummary struct {
	PassID               string      `json:"passId"`
	StartedAt            time.Time   `json:"startedAt"`
	FinishedAt           time.Time   `json:"finishedAt"`
	TotalChecked         int         `json:"totalChecked"`
	Skipped              int         `json:"skipped"`
	AtRisk               int         `json:"atRisk"`
	Breached             int         `json:"breached"`
	Escalated            int         `json:"escalated"`
	ResponseBreached     int         `json:"responseBreached"`
	NotificationsCreated int         `json:"notificationsCreated"`
	Errors               []PassError `json:"errors,omitempty"`
}

// MonitorDependencies bundles collaborators for the monitor service.
type MonitorDependencies struct {
	TrackingRepo repository.SlaTrackingRepository
	UserRepo     repository.UserRepository
	Notifier     Notifier
	Dispatcher   events.Dispatcher
	RedisClient  *redis.Client
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// MonitorService is the scheduler harness: it loads every active tracking
// record and applies clock, classifier, flag store and notifier to each one
// independently. It holds no internal state between passes beyond caches.
type MonitorService struct {
	trackings    repository.SlaTrackingRepository
	users        repository.UserRepository
	notifier     Notifier
	dispatcher   events.Dispatcher
	redisClient  *redis.Client
	metrics      *observability.Metrics
	logger       *zap.Logger
	classifier   sla.Classifier
	cfg          config.SlaConfig
	managerCache *ttlcache.Cache[string, *domain.User]
}

// NewMonitorService constructs the service.
func NewMonitorService(cfg config.SlaConfig, deps MonitorDependencies) *MonitorService {
	managerCache := ttlcache.New(ttlcache.WithTTL[string, *domain.User](cfg.ManagerCacheTTL()))
	go managerCache.Start()

	return &MonitorService{
		trackings:    deps.TrackingRepo,
		users:        deps.UserRepo,
		notifier:     deps.Notifier,
		dispatcher:   deps.Dispatcher,
		redisClient:  deps.RedisClient,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		classifier:   sla.NewClassifier(cfg.AtRiskThreshold),
		cfg:          cfg,
		managerCache: managerCache,
	}
}

// Close stops the manager cache's expiration goroutine. The service must
// not be used after Close.
func (s *MonitorService) Close() {
	s.managerCache.Stop()
}

// RunPass executes one SLA check pass at the given instant. Per-ticket
// failures are recorded in the summary and do not abort the pass; a failed
// bulk load does. The pass is idempotent: flag transitions are conditional
// updates and notifications are deduplicated, so overlapping or back-to-back
// invocations converge on the same persisted state.
func (s *MonitorService) RunPass(ctx context.Context, now time.Time) (PassSummary, error) {
	summary := PassSummary{
		PassID:    uuid.NewString(),
		StartedAt: now,
	}

	release, err := s.acquirePassLock(ctx, summary.PassID)
	if err != nil {
		return summary, err
	}
	defer release()

	records, err := s.trackings.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("load active sla trackings: %w", err)
	}

	budget := time.Now().Add(s.cfg.PassBudget())
	consecutiveErrors := 0
	for _, record := range records {
		if time.Now().After(budget) {
			summary.Errors = append(summary.Errors, PassError{
				Reason: fmt.Sprintf("pass budget exhausted after %d of %d tickets", summary.TotalChecked, len(records)),
			})
			break
		}

		summary.TotalChecked++

		ticketCtx, cancel := context.WithTimeout(ctx, s.cfg.TicketTimeout())
		err := s.checkTicket(ticketCtx, now, record, &summary)
		cancel()
		if err != nil {
			summary.Errors = append(summary.Errors, PassError{
				TicketID:   record.Tracking.TicketID,
				TrackingID: record.Tracking.ID,
				Reason:     err.Error(),
			})
			if errors.Is(err, errBadRecord) {
				continue
			}
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				summary.FinishedAt = time.Now()
				return summary, fmt.Errorf("aborting pass after %d consecutive ticket failures: %w", consecutiveErrors, err)
			}
			continue
		}
		consecutiveErrors = 0
	}

	summary.FinishedAt = time.Now()
	s.metrics.RecordPass(summary.Breached, summary.Escalated, summary.NotificationsCreated, len(summary.Errors))
	s.cacheSummary(ctx, summary)

	s.logger.Info("sla pass finished",
		zap.String("pass_id", summary.PassID),
		zap.Int("total_checked", summary.TotalChecked),
		zap.Int("at_risk", summary.AtRisk),
		zap.Int("breached", summary.Breached),
		zap.Int("escalated", summary.Escalated),
		zap.Int("response_breached", summary.ResponseBreached),
		zap.Int("notifications_created", summary.NotificationsCreated),
		zap.Int("errors", len(summary.Errors)))

	return summary, nil
}

func (s *MonitorService) checkTicket(ctx context.Context, now time.Time, record domain.TrackedTicket, summary *PassSummary) error {
	eval := s.classifier.Evaluate(record, now)

	switch eval.Skip {
	case sla.SkipInactiveStatus, sla.SkipPaused:
		summary.Skipped++
		return nil
	case sla.SkipBadTemplate:
		return fmt.Errorf("missing or invalid sla template %q: %w", record.Tracking.TemplateID, errBadRecord)
	}

	if eval.State == sla.ResolutionBreached {
		if err := s.handleResolutionBreach(ctx, now, record, eval, summary); err != nil {
			return err
		}
	} else if eval.State == sla.ResolutionAtRisk {
		summary.AtRisk++
		if err := s.handleAtRisk(ctx, now, record, eval, summary); err != nil {
			return err
		}
	}

	// Response breach is tracked independently of the resolution branch.
	// Per the reference behavior it is flag-only: no in-app notification.
	if eval.ResponseOverdue {
		won, err := s.trackings.TrySetFlag(ctx, record.Tracking.ID, domain.BreachFlagResponse)
		if err != nil {
			return fmt.Errorf("set response breach flag: %w", err)
		}
		if won {
			summary.ResponseBreached++
			s.publish(ctx, now, events.EventSlaResponseBreached, record, events.SlaResponseBreachPayload{
				TrackingID:    record.Tracking.ID,
				TicketNumber:  record.Ticket.TicketNumber,
				ElapsedHours:  eval.Elapsed.Hours(),
				ResponseHours: record.Template.ResponseHours,
			})
		}
	}

	return nil
}

func (s *MonitorService) handleResolutionBreach(ctx context.Context, now time.Time, record domain.TrackedTicket, eval sla.Evaluation, summary *PassSummary) error {
	if eval.ResolutionTransition {
		won, err := s.trackings.TrySetFlag(ctx, record.Tracking.ID, domain.BreachFlagResolution)
		if err != nil {
			return fmt.Errorf("set resolution breach flag: %w", err)
		}
		// Only the invocation that wins the conditional update notifies;
		// a concurrent pass that lost treats the flag as already set.
		if won {
			summary.Breached++
			created, err := s.notifyBreach(ctx, now, record)
			summary.NotificationsCreated += created
			if err != nil {
				return err
			}
			s.publish(ctx, now, events.EventSlaResolutionBreached, record, events.SlaBreachPayload{
				TrackingID:      record.Tracking.ID,
				TicketNumber:    record.Ticket.TicketNumber,
				ElapsedHours:    eval.Elapsed.Hours(),
				ResolutionHours: record.Template.ResolutionHours,
			})
		}
	}

	if eval.EscalationDue {
		won, err := s.trackings.TrySetFlag(ctx, record.Tracking.ID, domain.BreachFlagEscalated)
		if err != nil {
			return fmt.Errorf("set escalation flag: %w", err)
		}
		if won {
			summary.Escalated++
			s.publish(ctx, now, events.EventSlaEscalated, record, events.SlaEscalatedPayload{
				TrackingID:      record.Tracking.ID,
				TicketNumber:    record.Ticket.TicketNumber,
				ElapsedHours:    eval.Elapsed.Hours(),
				EscalationHours: record.Template.EscalationHours,
			})
		}
	}

	return nil
}

func (s *MonitorService) handleAtRisk(ctx context.Context, now time.Time, record domain.TrackedTicket, eval sla.Evaluation, summary *PassSummary) error {
	if record.Ticket.AssignedToID == nil {
		return nil
	}

	remaining := eval.Resolution.Remaining.Round(time.Minute)
	created, err := s.notifier.NotifyOnce(ctx, now, *record.Ticket.AssignedToID,
		domain.NotificationSystemAlert,
		fmt.Sprintf("SLA at risk: %s", record.Ticket.TicketNumber),
		fmt.Sprintf("Ticket %s has %s of resolution SLA remaining.", record.Ticket.TicketNumber, remaining),
		notificationData(record))
	if err != nil {
		return fmt.Errorf("notify at-risk assignee: %w", err)
	}
	if created {
		summary.NotificationsCreated++
		s.publish(ctx, now, events.EventSlaAtRisk, record, events.SlaAtRiskPayload{
			TrackingID:       record.Tracking.ID,
			TicketNumber:     record.Ticket.TicketNumber,
			PercentRemaining: eval.Resolution.PercentRemaining,
			RemainingMinutes: int64(eval.Resolution.Remaining.Minutes()),
		})
	}
	return nil
}

// notifyBreach alerts the assignee and the support group's manager about a
// first-time resolution breach. Returns how many notifications were created.
func (s *MonitorService) notifyBreach(ctx context.Context, now time.Time, record domain.TrackedTicket) (int, error) {
	title := fmt.Sprintf("SLA breached: %s", record.Ticket.TicketNumber)
	message := fmt.Sprintf("Ticket %s exceeded its %dh resolution deadline.",
		record.Ticket.TicketNumber, record.Template.ResolutionHours)
	data := notificationData(record)

	created := 0
	if record.Ticket.AssignedToID != nil {
		ok, err := s.notifier.NotifyOnce(ctx, now, *record.Ticket.AssignedToID,
			domain.NotificationTicketEscalated, title, message, data)
		if err != nil {
			return created, fmt.Errorf("notify assignee: %w", err)
		}
		if ok {
			created++
		}
	}

	if record.Ticket.SupportGroupID == nil {
		return created, nil
	}
	manager, err := s.groupManager(ctx, *record.Ticket.SupportGroupID)
	if err != nil {
		return created, fmt.Errorf("lookup group manager: %w", err)
	}
	if manager == nil {
		return created, nil
	}
	if record.Ticket.AssignedToID != nil && manager.ID == *record.Ticket.AssignedToID {
		return created, nil
	}

	ok, err := s.notifier.NotifyOnce(ctx, now, manager.ID,
		domain.NotificationTicketEscalated, title, message, data)
	if err != nil {
		return created, fmt.Errorf("notify group manager: %w", err)
	}
	if ok {
		created++
	}
	return created, nil
}

// groupManager resolves the support group's manager, memoized for a few
// minutes since group composition changes rarely relative to pass frequency.
func (s *MonitorService) groupManager(ctx context.Context, groupID string) (*domain.User, error) {
	if item := s.managerCache.Get(groupID); item != nil {
		return item.Value(), nil
	}
	manager, err := s.users.FindGroupManager(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.managerCache.Set(groupID, manager, ttlcache.DefaultTTL)
	return manager, nil
}

// acquirePassLock takes the advisory redis lock bounding one concurrent
// pass. Correctness does not depend on it (the conditional flag updates do
// that); it only avoids running redundant work, so a redis outage degrades
// to lock-free operation.
func (s *MonitorService) acquirePassLock(ctx context.Context, passID string) (func(), error) {
	if s.redisClient == nil {
		return func() {}, nil
	}

	acquired, err := s.redisClient.SetNX(ctx, passLockKey, passID, s.cfg.PassBudget()).Result()
	if err != nil {
		s.logger.Warn("pass lock unavailable; continuing without it", zap.Error(err))
		return func() {}, nil
	}
	if !acquired {
		return func() {}, ErrPassInProgress
	}
	return func() {
		if err := s.redisClient.Del(context.WithoutCancel(ctx), passLockKey).Err(); err != nil {
			s.logger.Warn("failed to release pass lock", zap.Error(err))
		}
	}, nil
}

func (s *MonitorService) cacheSummary(ctx context.Context, summary PassSummary) {
	if s.redisClient == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn("failed to marshal pass summary", zap.Error(err))
		return
	}
	if err := s.redisClient.Set(ctx, lastPassKey, payload, lastPassTTL).Err(); err != nil {
		s.logger.Warn("failed to cache pass summary", zap.Error(err))
	}
}

// TrackingStatus returns the breach-flag state for one ticket. The lookup
// fails with pgx.ErrNoRows when the ticket has no tracking record.
func (s *MonitorService) TrackingStatus(ctx context.Context, ticketID string) (*domain.SlaTracking, error) {
	return s.trackings.GetByTicketID(ctx, ticketID)
}

// LastSummary returns the most recent cached pass summary, or nil when no
// pass has completed within the cache TTL.
func (s *MonitorService) LastSummary(ctx context.Context) (*PassSummary, error) {
	if s.redisClient == nil {
		return nil, nil
	}
	payload, err := s.redisClient.Get(ctx, lastPassKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var summary PassSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *MonitorService) publish(ctx context.Context, now time.Time, eventType events.EventType, record domain.TrackedTicket, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  record.Tracking.TicketID,
		Timestamp: now,
		Payload:   payload,
	})
}

func notificationData(record domain.TrackedTicket) map[string]any {
	return map[string]any{
		"ticketId":     record.Tracking.TicketID,
		"trackingId":   record.Tracking.ID,
		"ticketNumber": record.Ticket.TicketNumber,
	}
}
