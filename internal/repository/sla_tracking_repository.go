package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk-sla/internal/domain"
)

// SlaTrackingRepository encapsulates persistence for SLA tracking records.
type SlaTrackingRepository interface {
	// ListActive loads every tracking record whose ticket is in an
	// SLA-active status, joined with ticket clock fields and template
	// deadlines, in one query.
	ListActive(ctx context.Context) ([]domain.TrackedTicket, error)
	// TrySetFlag flips the named flag false->true conditionally and
	// reports whether this call won the transition. Safe under
	// overlapping scheduler passes.
	TrySetFlag(ctx context.Context, trackingID string, flag domain.BreachFlag) (bool, error)
	GetByTicketID(ctx context.Context, ticketID string) (*domain.SlaTracking, error)
}

type slaTrackingRepository struct {
	pool *pgxpool.Pool
}

// NewSlaTrackingRepository instantiates repository.
func NewSlaTrackingRepository(pool *pgxpool.Pool) SlaTrackingRepository {
	return &slaTrackingRepository{pool: pool}
}

func (r *slaTrackingRepository) ListActive(ctx context.Context) ([]domain.TrackedTicket, error) {
	// LEFT JOIN on the template so a dangling template_id still yields a
	// row; the pass records it as a per-ticket error instead of silently
	// dropping the ticket.
	const query = `
        SELECT st.id, st.ticket_id, st.template_id,
               st.is_response_breached, st.is_resolution_breached, st.is_escalated,
               st.response_time, st.created_at, st.updated_at,
               t.ticket_number, t.title, t.status, t.assigned_to_id, t.support_group_id,
               t.sla_start_at, t.sla_paused_at, t.sla_paused_total_ms,
               tpl.id, tpl.service_id, tpl.response_hours, tpl.resolution_hours,
               tpl.escalation_hours, tpl.business_hours_only
        FROM sla_tracking st
        JOIN tickets t ON t.id = st.ticket_id
        LEFT JOIN sla_templates tpl ON tpl.id = st.template_id
        WHERE t.status = ANY($1)`

	statuses := make([]string, len(domain.ActiveSlaStatuses))
	for i, s := range domain.ActiveSlaStatuses {
		statuses[i] = string(s)
	}

	rows, err := r.pool.Query(ctx, query, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackedTickets(rows)
}

func scanTrackedTickets(rows pgx.Rows) ([]domain.TrackedTicket, error) {
	var result []domain.TrackedTicket
	for rows.Next() {
		var rec domain.TrackedTicket
		var tplID, tplServiceID *string
		var tplResponse, tplResolution, tplEscalation *int
		var tplBusinessHours *bool

		if err := rows.Scan(
			&rec.Tracking.ID,
			&rec.Tracking.TicketID,
			&rec.Tracking.TemplateID,
			&rec.Tracking.IsResponseBreached,
			&rec.Tracking.IsResolutionBreached,
			&rec.Tracking.IsEscalated,
			&rec.Tracking.ResponseTime,
			&rec.Tracking.CreatedAt,
			&rec.Tracking.UpdatedAt,
			&rec.Ticket.TicketNumber,
			&rec.Ticket.Title,
			&rec.Ticket.Status,
			&rec.Ticket.AssignedToID,
			&rec.Ticket.SupportGroupID,
			&rec.Ticket.SlaStartAt,
			&rec.Ticket.SlaPausedAt,
			&rec.Ticket.SlaPausedTotalMs,
			&tplID,
			&tplServiceID,
			&tplResponse,
			&tplResolution,
			&tplEscalation,
			&tplBusinessHours,
		); err != nil {
			return nil, err
		}

		rec.Ticket.ID = rec.Tracking.TicketID
		if tplID != nil {
			rec.Template = &domain.SlaTemplate{
				ID:                *tplID,
				ServiceID:         derefString(tplServiceID),
				ResponseHours:     derefInt(tplResponse),
				ResolutionHours:   derefInt(tplResolution),
				EscalationHours:   derefInt(tplEscalation),
				BusinessHoursOnly: tplBusinessHours != nil && *tplBusinessHours,
			}
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *slaTrackingRepository) TrySetFlag(ctx context.Context, trackingID string, flag domain.BreachFlag) (bool, error) {
	column, err := flagColumn(flag)
	if err != nil {
		return false, err
	}

	// Conditional update: only the caller that observes the flag still
	// false gets RowsAffected=1. This is the concurrency-safety seam for
	// overlapping passes.
	query := fmt.Sprintf(
		`UPDATE sla_tracking SET %s = TRUE, updated_at = NOW() WHERE id = $1 AND %s = FALSE`,
		column, column)

	cmd, err := r.pool.Exec(ctx, query, trackingID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *slaTrackingRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.SlaTracking, error) {
	const query = `
        SELECT id, ticket_id, template_id, is_response_breached, is_resolution_breached,
               is_escalated, response_time, created_at, updated_at
        FROM sla_tracking WHERE ticket_id=$1`

	var tracking domain.SlaTracking
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&tracking.ID,
		&tracking.TicketID,
		&tracking.TemplateID,
		&tracking.IsResponseBreached,
		&tracking.IsResolutionBreached,
		&tracking.IsEscalated,
		&tracking.ResponseTime,
		&tracking.CreatedAt,
		&tracking.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tracking, nil
}

func flagColumn(flag domain.BreachFlag) (string, error) {
	switch flag {
	case domain.BreachFlagResponse:
		return "is_response_breached", nil
	case domain.BreachFlagResolution:
		return "is_resolution_breached", nil
	case domain.BreachFlagEscalated:
		return "is_escalated", nil
	default:
		return "", fmt.Errorf("unknown breach flag %q", flag)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
