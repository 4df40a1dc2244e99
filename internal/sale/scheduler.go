package sale

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

// SweepStore is the slice of the event repository the activation
// scheduler needs.  Implemented by repository.SaleEventRepo.
type SweepStore interface {
	ListForSweep(ctx context.Context) ([]model.SaleEvent, error)
	UpdateStatusBatch(ctx context.Context, ids []uint64, status string) (int64, error)
	RollForward(ctx context.Context, ev *model.SaleEvent) error
}

// Scheduler keeps the cached status column of every event in step with
// its time window.  It runs one sweep per tick: events whose cached
// status no longer matches DesiredStatus are batch-updated, and closed
// recurring events with a next start date are rolled forward to their
// next occurrence.  The cached status is a convenience for listings
// only; the purchase path re-derives openness from the window and never
// depends on the sweep having run.
type Scheduler struct {
	store    SweepStore
	interval time.Duration
	now      func() time.Time
}

// NewScheduler constructs a scheduler sweeping at the given interval.
func NewScheduler(store SweepStore, interval time.Duration) *Scheduler {
	return &Scheduler{store: store, interval: interval, now: time.Now}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.  Intended to be launched as a goroutine from main.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.Sweep(ctx); err != nil {
		log.Printf("sale: activation sweep failed: %v", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("sale: activation sweep failed: %v", err)
			}
		}
	}
}

// Sweep performs one reconciliation pass.  Per-event failures do not
// abort the pass; the first error is returned after every event has
// been visited so a single bad row cannot starve the rest.
func (s *Scheduler) Sweep(ctx context.Context) error {
	events, err := s.store.ListForSweep(ctx)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	byStatus := make(map[string][]uint64)
	var firstErr error
	for i := range events {
		ev := &events[i]
		want := DesiredStatus(ev, now)
		if ev.Status != want {
			byStatus[want] = append(byStatus[want], ev.ID)
		}
		if want == model.EventClosed && ev.Schedule == model.ScheduleRecurring && ev.NextStartsAt != nil {
			if err := s.store.RollForward(ctx, ev); err != nil {
				log.Printf("sale: roll-forward failed for event %d: %v", ev.ID, err)
				if firstErr == nil {
					firstErr = err
				}
			} else {
				// Rolled forward events are SCHEDULED again; do not
				// also mark them closed in the batch below.
				ids := byStatus[model.EventClosed]
				if n := len(ids); n > 0 && ids[n-1] == ev.ID {
					byStatus[model.EventClosed] = ids[:n-1]
				}
			}
		}
	}

	for status, ids := range byStatus {
		if _, err := s.store.UpdateStatusBatch(ctx, ids, status); err != nil {
			log.Printf("sale: status update to %s failed: %v", status, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
