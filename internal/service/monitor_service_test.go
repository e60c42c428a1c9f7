package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk-sla/internal/config"
	"github.com/spec-kit/servicedesk-sla/internal/domain"
	"github.com/spec-kit/servicedesk-sla/internal/observability"
	"github.com/spec-kit/servicedesk-sla/internal/service"
)

var passNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type mockTrackingRepo struct {
	records []domain.TrackedTicket
	listErr error
	flagErr error
}

func (m *mockTrackingRepo) ListActive(_ context.Context) ([]domain.TrackedTicket, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]domain.TrackedTicket, len(m.records))
	copy(result, m.records)
	return result, nil
}

func (m *mockTrackingRepo) TrySetFlag(_ context.Context, trackingID string, flag domain.BreachFlag) (bool, error) {
	if m.flagErr != nil {
		return false, m.flagErr
	}
	for i := range m.records {
		tracking := &m.records[i].Tracking
		if tracking.ID != trackingID {
			continue
		}
		switch flag {
		case domain.BreachFlagResponse:
			if tracking.IsResponseBreached {
				return false, nil
			}
			tracking.IsResponseBreached = true
		case domain.BreachFlagResolution:
			if tracking.IsResolutionBreached {
				return false, nil
			}
			tracking.IsResolutionBreached = true
		case domain.BreachFlagEscalated:
			if tracking.IsEscalated {
				return false, nil
			}
			tracking.IsEscalated = true
		}
		return true, nil
	}
	return false, nil
}

func (m *mockTrackingRepo) GetByTicketID(_ context.Context, ticketID string) (*domain.SlaTracking, error) {
	for i := range m.records {
		if m.records[i].Tracking.TicketID == ticketID {
			tracking := m.records[i].Tracking
			return &tracking, nil
		}
	}
	return nil, errors.New("not found")
}

type mockUserRepo struct {
	managers map[string]*domain.User
	findErr  error
	getErr   error
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &domain.User{ID: id}, nil
}

func (m *mockUserRepo) FindGroupManager(_ context.Context, groupID string) (*domain.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.managers[groupID], nil
}

func slaTestConfig() config.SlaConfig {
	return config.SlaConfig{
		CronSecret:               "test-secret",
		DedupWindowHours:         4,
		AtRiskThreshold:          0.25,
		PassBudgetSeconds:        300,
		TicketTimeoutSeconds:     5,
		ManagerCacheTTLMinutes:   5,
		SchedulerIntervalMinutes: 15,
	}
}

func newMonitor(t *testing.T, trackings *mockTrackingRepo, users *mockUserRepo, notifications *mockNotificationRepo) *service.MonitorService {
	t.Helper()
	cfg := slaTestConfig()
	notifier := service.NewNotifierService(notifications, users, cfg.DedupWindow(), zap.NewNop())
	monitor := service.NewMonitorService(cfg, service.MonitorDependencies{
		TrackingRepo: trackings,
		UserRepo:     users,
		Notifier:     notifier,
		Metrics:      observability.NewMetrics(),
		Logger:       zap.NewNop(),
	})
	t.Cleanup(monitor.Close)
	return monitor
}

func activeRecord(trackingID, ticketID string, started time.Time) domain.TrackedTicket {
	assignee := "u-tech"
	group := "g-1"
	responded := started.Add(time.Hour)
	return domain.TrackedTicket{
		Tracking: domain.SlaTracking{
			ID:           trackingID,
			TicketID:     ticketID,
			TemplateID:   "tpl-1",
			ResponseTime: &responded,
			CreatedAt:    started,
		},
		Ticket: domain.Ticket{
			ID:             ticketID,
			TicketNumber:   "TKT-" + ticketID,
			Status:         domain.TicketStatusOpen,
			AssignedToID:   &assignee,
			SupportGroupID: &group,
			SlaStartAt:     &started,
		},
		Template: &domain.SlaTemplate{
			ID:              "tpl-1",
			ResponseHours:   4,
			ResolutionHours: 24,
			EscalationHours: 48,
		},
	}
}

func TestRunPassBreachNotifiesAssigneeAndManager(t *testing.T) {
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{
		activeRecord("tr-1", "t-1", passNow.Add(-25*time.Hour)),
	}}
	users := &mockUserRepo{managers: map[string]*domain.User{
		"g-1": {ID: "u-mgr", Role: domain.UserRoleManager},
	}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, users, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalChecked)
	assert.Equal(t, 1, summary.Breached)
	assert.Equal(t, 0, summary.Escalated)
	assert.Equal(t, 2, summary.NotificationsCreated)
	assert.Empty(t, summary.Errors)
	assert.True(t, trackings.records[0].Tracking.IsResolutionBreached)

	require.Len(t, notifications.created, 2)
	recipients := []string{notifications.created[0].UserID, notifications.created[1].UserID}
	assert.ElementsMatch(t, []string{"u-tech", "u-mgr"}, recipients)
	for _, n := range notifications.created {
		assert.Equal(t, domain.NotificationTicketEscalated, n.Type)
		assert.Equal(t, "t-1", n.TicketID())
	}
}

func TestRunPassIsIdempotent(t *testing.T) {
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{
		activeRecord("tr-1", "t-1", passNow.Add(-25*time.Hour)),
	}}
	users := &mockUserRepo{managers: map[string]*domain.User{
		"g-1": {ID: "u-mgr", Role: domain.UserRoleManager},
	}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, users, notifications)

	first, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	require.Equal(t, 1, first.Breached)
	require.Len(t, notifications.created, 2)

	// One minute later: same flags, no new notifications.
	second, err := monitor.RunPass(context.Background(), passNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Breached)
	assert.Equal(t, 0, second.NotificationsCreated)
	assert.Len(t, notifications.created, 2)
}

func TestRunPassManagerSameAsAssignee(t *testing.T) {
	record := activeRecord("tr-1", "t-1", passNow.Add(-25*time.Hour))
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{record}}
	users := &mockUserRepo{managers: map[string]*domain.User{
		"g-1": {ID: *record.Ticket.AssignedToID, Role: domain.UserRoleManager},
	}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, users, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotificationsCreated)
	assert.Len(t, notifications.created, 1)
}

func TestRunPassAtRisk(t *testing.T) {
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{
		activeRecord("tr-1", "t-1", passNow.Add(-23*time.Hour)),
	}}
	users := &mockUserRepo{}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, users, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AtRisk)
	assert.Equal(t, 0, summary.Breached)
	assert.Equal(t, 1, summary.NotificationsCreated)
	assert.False(t, trackings.records[0].Tracking.IsResolutionBreached)

	require.Len(t, notifications.created, 1)
	assert.Equal(t, domain.NotificationSystemAlert, notifications.created[0].Type)
	assert.Equal(t, "u-tech", notifications.created[0].UserID)

	// The check re-fires on the next pass; the notifier window dedups it.
	second, err := monitor.RunPass(context.Background(), passNow.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, second.AtRisk)
	assert.Equal(t, 0, second.NotificationsCreated)
	assert.Len(t, notifications.created, 1)
}

func TestRunPassAtRiskWithoutAssignee(t *testing.T) {
	record := activeRecord("tr-1", "t-1", passNow.Add(-23*time.Hour))
	record.Ticket.AssignedToID = nil
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{record}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, &mockUserRepo{}, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AtRisk)
	assert.Equal(t, 0, summary.NotificationsCreated)
	assert.Empty(t, notifications.created)
}

func TestRunPassPausedTicketNeverTransitions(t *testing.T) {
	record := activeRecord("tr-1", "t-1", passNow.Add(-200*time.Hour))
	pausedAt := passNow.Add(-time.Hour)
	record.Ticket.SlaPausedAt = &pausedAt
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{record}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, &mockUserRepo{}, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Breached)
	assert.Equal(t, 0, summary.AtRisk)
	assert.False(t, trackings.records[0].Tracking.IsResolutionBreached)
	assert.False(t, trackings.records[0].Tracking.IsResponseBreached)
	assert.Empty(t, notifications.created)
}

func TestRunPassEscalation(t *testing.T) {
	// Breached earlier; escalation threshold crossed now.
	record := activeRecord("tr-1", "t-1", passNow.Add(-49*time.Hour))
	record.Tracking.IsResolutionBreached = true
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{record}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, &mockUserRepo{}, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Breached)
	assert.Equal(t, 1, summary.Escalated)
	assert.True(t, trackings.records[0].Tracking.IsEscalated)
	// Escalation itself emits no separate in-app notification.
	assert.Empty(t, notifications.created)
}

func TestRunPassBreachAndEscalationTogether(t *testing.T) {
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{
		activeRecord("tr-1", "t-1", passNow.Add(-50*time.Hour)),
	}}
	users := &mockUserRepo{managers: map[string]*domain.User{
		"g-1": {ID: "u-mgr", Role: domain.UserRoleManager},
	}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, users, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Breached)
	assert.Equal(t, 1, summary.Escalated)
	assert.True(t, trackings.records[0].Tracking.IsResolutionBreached)
	assert.True(t, trackings.records[0].Tracking.IsEscalated)
}

func TestRunPassResponseBreachIsFlagOnly(t *testing.T) {
	record := activeRecord("tr-1", "t-1", passNow.Add(-5*time.Hour))
	record.Tracking.ResponseTime = nil
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{record}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, &mockUserRepo{}, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ResponseBreached)
	assert.Equal(t, 0, summary.Breached)
	assert.True(t, trackings.records[0].Tracking.IsResponseBreached)
	assert.Empty(t, notifications.created)

	second, err := monitor.RunPass(context.Background(), passNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, second.ResponseBreached)
}

func TestRunPassIsolatesBadRecords(t *testing.T) {
	bad := activeRecord("tr-1", "t-1", passNow.Add(-25*time.Hour))
	bad.Template = nil
	good := activeRecord("tr-2", "t-2", passNow.Add(-25*time.Hour))
	trackings := &mockTrackingRepo{records: []domain.TrackedTicket{bad, good}}
	users := &mockUserRepo{managers: map[string]*domain.User{
		"g-1": {ID: "u-mgr", Role: domain.UserRoleManager},
	}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, users, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalChecked)
	assert.Equal(t, 1, summary.Breached)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "t-1", summary.Errors[0].TicketID)
	assert.True(t, trackings.records[1].Tracking.IsResolutionBreached)
}

func TestRunPassManyBadTemplatesDoNotAbort(t *testing.T) {
	// A deleted template dangles under every tracking of its service, so
	// long runs of template-less records are a data problem, not a store
	// outage. The pass must reach the records behind them.
	records := make([]domain.TrackedTicket, 0, 7)
	for i := 0; i < 6; i++ {
		bad := activeRecord(fmt.Sprintf("tr-%d", i), fmt.Sprintf("t-%d", i), passNow.Add(-25*time.Hour))
		bad.Template = nil
		records = append(records, bad)
	}
	good := activeRecord("tr-good", "t-good", passNow.Add(-25*time.Hour))
	records = append(records, good)

	trackings := &mockTrackingRepo{records: records}
	users := &mockUserRepo{managers: map[string]*domain.User{
		"g-1": {ID: "u-mgr", Role: domain.UserRoleManager},
	}}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, users, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.TotalChecked)
	assert.Len(t, summary.Errors, 6)
	assert.Equal(t, 1, summary.Breached)
	assert.True(t, trackings.records[6].Tracking.IsResolutionBreached)
}

func TestRunPassBulkLoadFailureAborts(t *testing.T) {
	trackings := &mockTrackingRepo{listErr: errors.New("connection refused")}
	monitor := newMonitor(t, trackings, &mockUserRepo{}, &mockNotificationRepo{})

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.Error(t, err)
	assert.Equal(t, 0, summary.TotalChecked)
}

func TestRunPassFlagWriteErrorRecorded(t *testing.T) {
	trackings := &mockTrackingRepo{
		records: []domain.TrackedTicket{activeRecord("tr-1", "t-1", passNow.Add(-25*time.Hour))},
		flagErr: errors.New("write conflict"),
	}
	notifications := &mockNotificationRepo{}
	monitor := newMonitor(t, trackings, &mockUserRepo{}, notifications)

	summary, err := monitor.RunPass(context.Background(), passNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Breached)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Reason, "write conflict")
	assert.Empty(t, notifications.created)
}
