package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/servicedesk-sla/internal/api/http"
	"github.com/spec-kit/servicedesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk-sla/internal/config"
	"github.com/spec-kit/servicedesk-sla/internal/domain"
	"github.com/spec-kit/servicedesk-sla/internal/observability"
	"github.com/spec-kit/servicedesk-sla/internal/service"
)

const testSecret = "cron-secret"

type stubTrackingRepo struct {
	records []domain.TrackedTicket
	listErr error
	flags   map[string]map[domain.BreachFlag]bool
}

func (s *stubTrackingRepo) ListActive(_ context.Context) ([]domain.TrackedTicket, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.records, nil
}

func (s *stubTrackingRepo) TrySetFlag(_ context.Context, trackingID string, flag domain.BreachFlag) (bool, error) {
	if s.flags == nil {
		s.flags = make(map[string]map[domain.BreachFlag]bool)
	}
	if s.flags[trackingID] == nil {
		s.flags[trackingID] = make(map[domain.BreachFlag]bool)
	}
	if s.flags[trackingID][flag] {
		return false, nil
	}
	s.flags[trackingID][flag] = true
	return true, nil
}

func (s *stubTrackingRepo) GetByTicketID(_ context.Context, ticketID string) (*domain.SlaTracking, error) {
	for i := range s.records {
		if s.records[i].Tracking.TicketID == ticketID {
			tracking := s.records[i].Tracking
			return &tracking, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type stubUserRepo struct {
	getErr error
}

func (s *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &domain.User{ID: id}, nil
}

func (s *stubUserRepo) FindGroupManager(_ context.Context, _ string) (*domain.User, error) {
	return nil, nil
}

type stubNotificationRepo struct {
	created int
	list    []domain.Notification
}

func (s *stubNotificationRepo) Create(_ context.Context, _ *domain.Notification) error {
	s.created++
	return nil
}

func (s *stubNotificationRepo) ExistsSimilar(_ context.Context, _ string, _ domain.NotificationType, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (s *stubNotificationRepo) ListByUser(_ context.Context, _ string, _, _ int) ([]domain.Notification, error) {
	return s.list, nil
}

type testAppDeps struct {
	trackings     *stubTrackingRepo
	users         *stubUserRepo
	notifications *stubNotificationRepo
}

func newTestApp(t *testing.T, deps testAppDeps) *fiber.App {
	t.Helper()
	if deps.trackings == nil {
		deps.trackings = &stubTrackingRepo{}
	}
	if deps.users == nil {
		deps.users = &stubUserRepo{}
	}
	if deps.notifications == nil {
		deps.notifications = &stubNotificationRepo{}
	}

	cfg := config.SlaConfig{
		CronSecret:               testSecret,
		DedupWindowHours:         4,
		AtRiskThreshold:          0.25,
		PassBudgetSeconds:        300,
		TicketTimeoutSeconds:     5,
		ManagerCacheTTLMinutes:   5,
		SchedulerIntervalMinutes: 15,
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	notifier := service.NewNotifierService(deps.notifications, deps.users, cfg.DedupWindow(), logger)
	monitor := service.NewMonitorService(cfg, service.MonitorDependencies{
		TrackingRepo: deps.trackings,
		UserRepo:     deps.users,
		Notifier:     notifier,
		Metrics:      metrics,
		Logger:       logger,
	})
	t.Cleanup(monitor.Close)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Sla:           handlers.NewSlaHandler(monitor, testSecret, logger),
		Notifications: handlers.NewNotificationHandler(notifier),
		// health probes are not exercised here
		Health: handlers.NewHealthHandler("test", "dev", nil, nil),
	})
	return app
}

func breachedRecord() domain.TrackedTicket {
	started := time.Now().Add(-25 * time.Hour)
	assignee := "u-tech"
	responded := started.Add(time.Hour)
	return domain.TrackedTicket{
		Tracking: domain.SlaTracking{
			ID:           "tr-1",
			TicketID:     "t-1",
			TemplateID:   "tpl-1",
			ResponseTime: &responded,
			CreatedAt:    started,
		},
		Ticket: domain.Ticket{
			ID:           "t-1",
			TicketNumber: "TKT-t-1",
			Status:       domain.TicketStatusOpen,
			AssignedToID: &assignee,
			SlaStartAt:   &started,
		},
		Template: &domain.SlaTemplate{
			ID:              "tpl-1",
			ResponseHours:   4,
			ResolutionHours: 24,
			EscalationHours: 48,
		},
	}
}

func TestCheckRejectsMissingSecret(t *testing.T) {
	app := newTestApp(t, testAppDeps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/internal/sla/check", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckRejectsWrongSecret(t *testing.T) {
	app := newTestApp(t, testAppDeps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/internal/sla/check?secret=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckRunsPass(t *testing.T) {
	trackings := &stubTrackingRepo{records: []domain.TrackedTicket{breachedRecord()}}
	app := newTestApp(t, testAppDeps{trackings: trackings})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/internal/sla/check?secret="+testSecret, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success              bool `json:"success"`
		TotalChecked         int  `json:"totalChecked"`
		Breached             int  `json:"breached"`
		NotificationsCreated int  `json:"notificationsCreated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.TotalChecked)
	assert.Equal(t, 1, body.Breached)
	assert.Equal(t, 1, body.NotificationsCreated)
}

func TestCheckReportsSystemicFailure(t *testing.T) {
	trackings := &stubTrackingRepo{listErr: errors.New("connection refused")}
	app := newTestApp(t, testAppDeps{trackings: trackings})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/internal/sla/check?secret="+testSecret, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Success bool     `json:"success"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	require.NotEmpty(t, body.Errors)
	assert.Contains(t, body.Errors[0], "connection refused")
}

func TestStatusWithoutCacheReturnsNotFound(t *testing.T) {
	app := newTestApp(t, testAppDeps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sla/status", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTicketStatusReturnsTracking(t *testing.T) {
	record := breachedRecord()
	record.Tracking.IsResolutionBreached = true
	trackings := &stubTrackingRepo{records: []domain.TrackedTicket{record}}
	app := newTestApp(t, testAppDeps{trackings: trackings})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sla/tickets/t-1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TicketID             string `json:"ticketId"`
		IsResolutionBreached bool   `json:"isResolutionBreached"`
		IsEscalated          bool   `json:"isEscalated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "t-1", body.TicketID)
	assert.True(t, body.IsResolutionBreached)
	assert.False(t, body.IsEscalated)
}

func TestTicketStatusUnknownTicketReturnsNotFound(t *testing.T) {
	app := newTestApp(t, testAppDeps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sla/tickets/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListNotificationsForUser(t *testing.T) {
	notifications := &stubNotificationRepo{list: []domain.Notification{
		{
			ID:        "n-1",
			UserID:    "u-1",
			Type:      domain.NotificationTicketEscalated,
			Title:     "SLA breached: TKT-t-1",
			Data:      map[string]any{"ticketId": "t-1"},
			CreatedAt: time.Now(),
		},
	}}
	app := newTestApp(t, testAppDeps{notifications: notifications})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/u-1/notifications", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count         int `json:"count"`
		Notifications []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"notifications"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "n-1", body.Notifications[0].ID)
	assert.Equal(t, "TICKET_ESCALATED", body.Notifications[0].Type)
}

func TestListNotificationsUnknownUserReturnsNotFound(t *testing.T) {
	users := &stubUserRepo{getErr: pgx.ErrNoRows}
	app := newTestApp(t, testAppDeps{users: users})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/ghost/notifications", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
