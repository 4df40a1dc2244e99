// Package sale contains the flash-sale core: the time-window
// evaluator, the reservation orchestrator behind PlaceOrder, and the
// activation scheduler.  Everything here is written against small
// store interfaces so the correctness-critical paths can be exercised
// without a database.
package sale

import (
	"time"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

// IsOpen reports whether a sale event is open for purchase at the
// given instant.  An event is open iff now is at or after its start,
// at or before its end (when one is set), and the event has not been
// administratively disabled.  Pure and deterministic: no clock access,
// no I/O.  Both the event window and now are treated as instants in
// UTC; date and time-of-day are never compared separately.
func IsOpen(ev *model.SaleEvent, now time.Time) bool {
	if ev.Disabled {
		return false
	}
	if now.Before(ev.StartsAt) {
		return false
	}
	if ev.EndsAt != nil && now.After(*ev.EndsAt) {
		return false
	}
	return true
}

// DesiredStatus derives the activation state the event's cached status
// column should hold at the given instant.  The administrative disable
// flag is deliberately not considered here: disabling suppresses
// purchases via IsOpen but does not rewrite the lifecycle state.
func DesiredStatus(ev *model.SaleEvent, now time.Time) string {
	if now.Before(ev.StartsAt) {
		return model.EventScheduled
	}
	if ev.EndsAt != nil && now.After(*ev.EndsAt) {
		return model.EventClosed
	}
	return model.EventActive
}
