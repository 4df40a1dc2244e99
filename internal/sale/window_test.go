package sale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

func TestIsOpen(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	ev := &model.SaleEvent{StartsAt: start, EndsAt: &end}

	require.False(t, IsOpen(ev, start.Add(-time.Second)), "before start must be closed")
	require.True(t, IsOpen(ev, start), "start instant is inclusive")
	require.True(t, IsOpen(ev, start.Add(time.Hour)))
	require.True(t, IsOpen(ev, end), "end instant is inclusive")
	require.False(t, IsOpen(ev, end.Add(time.Second)), "after end must be closed")
}

func TestIsOpenNoEnd(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ev := &model.SaleEvent{StartsAt: start}

	require.False(t, IsOpen(ev, start.Add(-time.Minute)))
	require.True(t, IsOpen(ev, start.AddDate(1, 0, 0)), "open-ended events never close")
}

func TestIsOpenDisabled(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ev := &model.SaleEvent{StartsAt: start, Disabled: true}

	require.False(t, IsOpen(ev, start.Add(time.Minute)), "disabled events are closed even inside the window")
}

func TestIsOpenCrossMidnight(t *testing.T) {
	// A window from 22:00 to 02:00 the next day.  Comparing instants
	// keeps this correct without any date/time-of-day special casing.
	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	ev := &model.SaleEvent{StartsAt: start, EndsAt: &end}

	require.True(t, IsOpen(ev, time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)))
	require.True(t, IsOpen(ev, time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)))
	require.False(t, IsOpen(ev, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)))
}

func TestDesiredStatus(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	ev := &model.SaleEvent{StartsAt: start, EndsAt: &end}

	require.Equal(t, model.EventScheduled, DesiredStatus(ev, start.Add(-time.Minute)))
	require.Equal(t, model.EventActive, DesiredStatus(ev, start.Add(time.Minute)))
	require.Equal(t, model.EventClosed, DesiredStatus(ev, end.Add(time.Minute)))
}

func TestDesiredStatusIgnoresDisabled(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ev := &model.SaleEvent{StartsAt: start, Disabled: true}

	require.Equal(t, model.EventActive, DesiredStatus(ev, start.Add(time.Minute)))
}
