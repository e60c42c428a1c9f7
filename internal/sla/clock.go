// Package sla holds the pure SLA arithmetic: the clock model that turns
// timestamps into elapsed/remaining durations, and the classifier that maps
// those durations onto breach decisions. Nothing here touches storage; the
// current time is always an explicit parameter so tests can inject clocks.
package sla

import "time"

// Elapsed returns the active SLA time accrued between start and now,
// excluding accumulated pause time. The result is meaningless for a ticket
// that is currently paused; callers must skip paused tickets before calling.
func Elapsed(start time.Time, pausedTotal time.Duration, now time.Time) time.Duration {
	return now.Sub(start) - pausedTotal
}

// DeadlineStatus describes elapsed time measured against one deadline.
type DeadlineStatus struct {
	Deadline  time.Duration
	Remaining time.Duration
	// PercentRemaining is Remaining/Deadline in [..., 1]. Not clamped:
	// it goes negative once the deadline has passed, and callers must
	// check the sign explicitly.
	PercentRemaining float64
}

// Against measures an elapsed duration against a deadline given in hours.
// Hour-to-millisecond conversion is exact; no rounding happens here.
func Against(elapsed time.Duration, hours int) DeadlineStatus {
	deadline := time.Duration(hours) * time.Hour
	remaining := deadline - elapsed
	return DeadlineStatus{
		Deadline:         deadline,
		Remaining:        remaining,
		PercentRemaining: float64(remaining.Milliseconds()) / float64(deadline.Milliseconds()),
	}
}

// Breached reports whether the deadline has passed. Exactly zero remaining
// counts as breached, not as at-risk.
func (d DeadlineStatus) Breached() bool {
	return d.Remaining <= 0
}
