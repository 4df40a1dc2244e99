package sale

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

type fakeSweepStore struct {
	events      []model.SaleEvent
	updates     map[string][]uint64
	rolled      []uint64
	rollForward func(ev *model.SaleEvent) error
}

func (f *fakeSweepStore) ListForSweep(context.Context) ([]model.SaleEvent, error) {
	return f.events, nil
}

func (f *fakeSweepStore) UpdateStatusBatch(_ context.Context, ids []uint64, status string) (int64, error) {
	if f.updates == nil {
		f.updates = make(map[string][]uint64)
	}
	f.updates[status] = append(f.updates[status], ids...)
	return int64(len(ids)), nil
}

func (f *fakeSweepStore) RollForward(_ context.Context, ev *model.SaleEvent) error {
	if f.rollForward != nil {
		return f.rollForward(ev)
	}
	f.rolled = append(f.rolled, ev.ID)
	return nil
}

func TestSweepActivatesAndCloses(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pastEnd := now.Add(-time.Hour)

	store := &fakeSweepStore{events: []model.SaleEvent{
		// Should flip SCHEDULED -> ACTIVE: started an hour ago.
		{ID: 1, StartsAt: now.Add(-time.Hour), Status: model.EventScheduled, Schedule: model.ScheduleOneOff},
		// Should flip ACTIVE -> CLOSED: ended an hour ago.
		{ID: 2, StartsAt: now.Add(-3 * time.Hour), EndsAt: &pastEnd, Status: model.EventActive, Schedule: model.ScheduleOneOff},
		// Already correct; untouched.
		{ID: 3, StartsAt: now.Add(time.Hour), Status: model.EventScheduled, Schedule: model.ScheduleOneOff},
	}}

	s := NewScheduler(store, time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Sweep(context.Background()))
	require.Equal(t, []uint64{1}, store.updates[model.EventActive])
	require.Equal(t, []uint64{2}, store.updates[model.EventClosed])
	require.Empty(t, store.rolled)
}

func TestSweepRollsForwardRecurring(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pastEnd := now.Add(-time.Hour)
	nextStart := now.Add(24 * time.Hour)

	store := &fakeSweepStore{events: []model.SaleEvent{
		{
			ID:           5,
			StartsAt:     now.Add(-3 * time.Hour),
			EndsAt:       &pastEnd,
			Status:       model.EventActive,
			Schedule:     model.ScheduleRecurring,
			NextStartsAt: &nextStart,
		},
	}}

	s := NewScheduler(store, time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Sweep(context.Background()))
	require.Equal(t, []uint64{5}, store.rolled)
	require.Empty(t, store.updates[model.EventClosed], "rolled-forward events are not also marked closed")
}

func TestSweepRecurringWithoutNextCloses(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pastEnd := now.Add(-time.Hour)

	store := &fakeSweepStore{events: []model.SaleEvent{
		{
			ID:       6,
			StartsAt: now.Add(-3 * time.Hour),
			EndsAt:   &pastEnd,
			Status:   model.EventActive,
			Schedule: model.ScheduleRecurring,
		},
	}}

	s := NewScheduler(store, time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Sweep(context.Background()))
	require.Empty(t, store.rolled)
	require.Equal(t, []uint64{6}, store.updates[model.EventClosed])
}
