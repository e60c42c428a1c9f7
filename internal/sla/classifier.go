package sla

import (
	"time"

	"github.com/spec-kit/servicedesk-sla/internal/domain"
)

// ResolutionState classifies a ticket's resolution SLA.
type ResolutionState string

const (
	ResolutionOnTrack  ResolutionState = "ON_TRACK"
	ResolutionAtRisk   ResolutionState = "AT_RISK"
	ResolutionBreached ResolutionState = "BREACHED"
)

// SkipReason explains why a record was not classified.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipInactiveStatus SkipReason = "INACTIVE_STATUS"
	SkipPaused         SkipReason = "PAUSED"
	SkipBadTemplate    SkipReason = "BAD_TEMPLATE"
)

// Evaluation is the classifier's verdict for one tracked ticket. It states
// which transitions are due; executing them (conditional flag writes,
// notifications) is the scheduler's job.
type Evaluation struct {
	Skip       SkipReason
	Elapsed    time.Duration
	Resolution DeadlineStatus
	State      ResolutionState
	// ResolutionTransition is true when the breach flag has not been set
	// yet, i.e. this pass may win the one-way transition.
	ResolutionTransition bool
	// EscalationDue is true when elapsed time has passed the escalation
	// threshold of an unescalated, breached ticket. Only evaluated inside
	// the breached branch, so escalated implies resolution-breached.
	EscalationDue bool
	// ResponseOverdue is true when no first response was recorded within
	// the response deadline and the response flag has not been set yet.
	ResponseOverdue bool
}

// Classifier applies deadline rules to tracked tickets.
type Classifier struct {
	// AtRiskThreshold is the inclusive fraction of remaining time at or
	// below which an unbreached ticket counts as at-risk.
	AtRiskThreshold float64
}

// NewClassifier returns a classifier with the given at-risk threshold,
// falling back to the conventional 25% when it is out of range.
func NewClassifier(atRiskThreshold float64) Classifier {
	if atRiskThreshold <= 0 || atRiskThreshold > 1 {
		atRiskThreshold = 0.25
	}
	return Classifier{AtRiskThreshold: atRiskThreshold}
}

// Evaluate classifies one tracked ticket at the given instant. Inactive and
// paused tickets are skipped entirely: no time accrues and no transition
// fires. A missing or malformed template is a skip too; the caller records
// it as a per-ticket error.
func (c Classifier) Evaluate(rec domain.TrackedTicket, now time.Time) Evaluation {
	if !rec.Ticket.Status.SlaActive() {
		return Evaluation{Skip: SkipInactiveStatus}
	}
	if rec.Ticket.Paused() {
		return Evaluation{Skip: SkipPaused}
	}
	if !rec.Template.Valid() {
		return Evaluation{Skip: SkipBadTemplate}
	}

	elapsed := Elapsed(rec.SlaStart(), rec.Ticket.PausedTotal(), now)
	resolution := Against(elapsed, rec.Template.ResolutionHours)

	eval := Evaluation{
		Elapsed:    elapsed,
		Resolution: resolution,
		State:      ResolutionOnTrack,
	}

	if resolution.Breached() {
		eval.State = ResolutionBreached
		eval.ResolutionTransition = !rec.Tracking.IsResolutionBreached
		escalation := time.Duration(rec.Template.EscalationHours) * time.Hour
		eval.EscalationDue = !rec.Tracking.IsEscalated && elapsed > escalation
	} else if resolution.PercentRemaining <= c.AtRiskThreshold {
		eval.State = ResolutionAtRisk
	}

	if rec.Tracking.ResponseTime == nil && !rec.Tracking.IsResponseBreached {
		eval.ResponseOverdue = Against(elapsed, rec.Template.ResponseHours).Breached()
	}

	return eval
}
