package sale

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flash-sale-backend/internal/model"
	"github.com/iliyamo/flash-sale-backend/internal/repository"
)

// fakeEvents serves a fixed set of events.
type fakeEvents struct {
	events map[uint64]*model.SaleEvent
}

func (f *fakeEvents) GetByID(_ context.Context, id uint64) (*model.SaleEvent, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return ev, nil
}

// fakeLedger reproduces the ledger's all-or-nothing contract in memory:
// one mutex, per-product counters, unit prices captured on reserve.
type fakeLedger struct {
	mu       sync.Mutex
	stock    map[uint64]int64
	prices   map[uint64]int64
	released [][]model.OrderItem
	failWith error
	failures int
	calls    int
}

func (f *fakeLedger) Reserve(_ context.Context, _ uint64, items []model.LineItem) ([]model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWith != nil && f.failures > 0 {
		f.failures--
		return nil, f.failWith
	}
	for _, it := range items {
		avail, ok := f.stock[it.ProductID]
		if !ok {
			return nil, repository.ErrUnknownProduct
		}
		if avail < it.Quantity {
			return nil, &repository.InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: avail,
			}
		}
	}
	reserved := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		f.stock[it.ProductID] -= it.Quantity
		reserved = append(reserved, model.OrderItem{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			PriceCents: f.prices[it.ProductID],
		})
	}
	return reserved, nil
}

func (f *fakeLedger) Release(_ context.Context, _ uint64, items []model.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		f.stock[it.ProductID] += it.Quantity
	}
	f.released = append(f.released, items)
	return nil
}

// fakeOrders records created orders; failWith makes Create fail.
type fakeOrders struct {
	mu       sync.Mutex
	orders   []*model.Order
	failWith error
}

func (f *fakeOrders) Create(_ context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	o.ID = uint64(len(f.orders) + 1)
	o.CreatedAt = time.Now().UTC()
	f.orders = append(f.orders, o)
	return nil
}

func openEvent(id uint64) *model.SaleEvent {
	return &model.SaleEvent{
		ID:       id,
		StartsAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Schedule: model.ScheduleOneOff,
		Status:   model.EventActive,
	}
}

func newTestOrchestrator(ev *model.SaleEvent, ledger *fakeLedger, orders *fakeOrders) *Orchestrator {
	o := NewOrchestrator(&fakeEvents{events: map[uint64]*model.SaleEvent{ev.ID: ev}}, ledger, orders, nil)
	o.now = func() time.Time { return ev.StartsAt.Add(time.Hour) }
	return o
}

func TestPlaceOrderSuccess(t *testing.T) {
	ledger := &fakeLedger{
		stock:  map[uint64]int64{7: 10},
		prices: map[uint64]int64{7: 2500},
	}
	orders := &fakeOrders{}
	orch := newTestOrchestrator(openEvent(1), ledger, orders)

	order, err := orch.PlaceOrder(context.Background(), 42, 1, []model.LineItem{{ProductID: 7, Quantity: 3}})
	require.NoError(t, err)
	require.Equal(t, uint64(42), order.UserID)
	require.Len(t, order.Items, 1)
	require.Equal(t, int64(2500), order.Items[0].PriceCents, "unit price comes from the ledger, never the caller")
	require.Equal(t, int64(7500), order.TotalCents)
	require.Equal(t, int64(7), ledger.stock[7])
	require.Len(t, orders.orders, 1)
}

func TestPlaceOrderMergesDuplicateLines(t *testing.T) {
	ledger := &fakeLedger{
		stock:  map[uint64]int64{7: 10},
		prices: map[uint64]int64{7: 100},
	}
	orch := newTestOrchestrator(openEvent(1), ledger, &fakeOrders{})

	order, err := orch.PlaceOrder(context.Background(), 1, 1, []model.LineItem{
		{ProductID: 7, Quantity: 2},
		{ProductID: 7, Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.Equal(t, int64(5), order.Items[0].Quantity)
	require.Equal(t, int64(5), ledger.stock[7])
}

func TestPlaceOrderInvalidRequest(t *testing.T) {
	ledger := &fakeLedger{stock: map[uint64]int64{}, prices: map[uint64]int64{}}
	orch := newTestOrchestrator(openEvent(1), ledger, &fakeOrders{})

	_, err := orch.PlaceOrder(context.Background(), 1, 1, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = orch.PlaceOrder(context.Background(), 1, 1, []model.LineItem{{ProductID: 7, Quantity: 0}})
	require.ErrorIs(t, err, ErrInvalidRequest)

	require.Zero(t, ledger.calls, "invalid requests never reach the ledger")
}

func TestPlaceOrderWindowClosed(t *testing.T) {
	ev := openEvent(1)
	end := ev.StartsAt.Add(30 * time.Minute)
	ev.EndsAt = &end

	ledger := &fakeLedger{stock: map[uint64]int64{7: 10}, prices: map[uint64]int64{7: 100}}
	orch := newTestOrchestrator(ev, ledger, &fakeOrders{})
	// Clock is one hour past start, thirty minutes past end.

	_, err := orch.PlaceOrder(context.Background(), 1, 1, []model.LineItem{{ProductID: 7, Quantity: 1}})
	require.ErrorIs(t, err, ErrSaleNotOpen)
	require.Zero(t, ledger.calls)
}

func TestPlaceOrderDisabledEvent(t *testing.T) {
	ev := openEvent(1)
	ev.Disabled = true
	ledger := &fakeLedger{stock: map[uint64]int64{7: 10}, prices: map[uint64]int64{7: 100}}
	orch := newTestOrchestrator(ev, ledger, &fakeOrders{})

	_, err := orch.PlaceOrder(context.Background(), 1, 1, []model.LineItem{{ProductID: 7, Quantity: 1}})
	require.ErrorIs(t, err, ErrSaleNotOpen)
}

func TestPlaceOrderEventNotFound(t *testing.T) {
	orch := newTestOrchestrator(openEvent(1), &fakeLedger{}, &fakeOrders{})

	_, err := orch.PlaceOrder(context.Background(), 1, 99, []model.LineItem{{ProductID: 7, Quantity: 1}})
	require.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	ledger := &fakeLedger{stock: map[uint64]int64{7: 2}, prices: map[uint64]int64{7: 100}}
	orders := &fakeOrders{}
	orch := newTestOrchestrator(openEvent(1), ledger, orders)

	_, err := orch.PlaceOrder(context.Background(), 1, 1, []model.LineItem{{ProductID: 7, Quantity: 3}})
	var ise *repository.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	require.Equal(t, int64(2), ise.Available)
	require.Equal(t, int64(2), ledger.stock[7], "failed reservation leaves stock untouched")
	require.Empty(t, orders.orders)
}

func TestPlaceOrderCompensatesFailedPersist(t *testing.T) {
	ledger := &fakeLedger{stock: map[uint64]int64{7: 5}, prices: map[uint64]int64{7: 100}}
	orders := &fakeOrders{failWith: errors.New("db down")}
	orch := newTestOrchestrator(openEvent(1), ledger, orders)

	_, err := orch.PlaceOrder(context.Background(), 1, 1, []model.LineItem{{ProductID: 7, Quantity: 4}})
	require.Error(t, err)
	require.Equal(t, int64(5), ledger.stock[7], "decrement must be re-credited when the order cannot be recorded")
	require.Len(t, ledger.released, 1)
}

func TestPlaceOrderRetriesConflict(t *testing.T) {
	ledger := &fakeLedger{
		stock:    map[uint64]int64{7: 5},
		prices:   map[uint64]int64{7: 100},
		failWith: repository.ErrConflict,
		failures: 2,
	}
	orch := newTestOrchestrator(openEvent(1), ledger, &fakeOrders{})

	order, err := orch.PlaceOrder(context.Background(), 1, 1, []model.LineItem{{ProductID: 7, Quantity: 1}})
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, 3, ledger.calls, "two conflicts then success")
}

func TestPlaceOrderConflictExhausted(t *testing.T) {
	ledger := &fakeLedger{
		stock:    map[uint64]int64{7: 5},
		prices:   map[uint64]int64{7: 100},
		failWith: repository.ErrConflict,
		failures: maxReserveAttempts,
	}
	orch := newTestOrchestrator(openEvent(1), ledger, &fakeOrders{})

	_, err := orch.PlaceOrder(context.Background(), 1, 1, []model.LineItem{{ProductID: 7, Quantity: 1}})
	require.ErrorIs(t, err, repository.ErrConflict)
	require.Equal(t, maxReserveAttempts, ledger.calls)
}

// Two concurrent requests for 150 units against a pool of 200: exactly
// one succeeds, the loser sees insufficient stock, and the remaining
// pool is 50.  Never both, never a negative pool.
func TestPlaceOrderNoOversell(t *testing.T) {
	ledger := &fakeLedger{stock: map[uint64]int64{7: 200}, prices: map[uint64]int64{7: 100}}
	orders := &fakeOrders{}
	orch := newTestOrchestrator(openEvent(1), ledger, orders)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orch.PlaceOrder(context.Background(), uint64(i+1), 1, []model.LineItem{{ProductID: 7, Quantity: 150}})
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var ise *repository.InsufficientStockError
		require.ErrorAs(t, err, &ise)
		insufficient++
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, insufficient)
	require.Equal(t, int64(50), ledger.stock[7])
	require.Len(t, orders.orders, 1)
}

// Many small concurrent purchases drain the pool to exactly zero and
// the sum of ordered quantities equals the initial stock.
func TestPlaceOrderConcurrentDrain(t *testing.T) {
	const (
		initial = 40
		buyers  = 60
	)
	ledger := &fakeLedger{stock: map[uint64]int64{7: initial}, prices: map[uint64]int64{7: 100}}
	orders := &fakeOrders{}
	orch := newTestOrchestrator(openEvent(1), ledger, orders)

	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = orch.PlaceOrder(context.Background(), uint64(i+1), 1, []model.LineItem{{ProductID: 7, Quantity: 1}})
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(0), ledger.stock[7])
	var sold int64
	for _, o := range orders.orders {
		for _, it := range o.Items {
			sold += it.Quantity
		}
	}
	require.Equal(t, int64(initial), sold)
}
