package sale

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/flash-sale-backend/internal/model"
	"github.com/iliyamo/flash-sale-backend/internal/repository"
)

// ErrInvalidRequest is returned for malformed order input: no line
// items, or a quantity below one.  Handlers translate it into 400.
var ErrInvalidRequest = errors.New("invalid order request")

// ErrSaleNotOpen is returned when the event's window is not open at
// reservation time.  The orchestrator always re-derives openness from
// the window itself; the cached status column written by the sweep is
// never trusted on the purchase path.
var ErrSaleNotOpen = errors.New("sale is not open")

// maxReserveAttempts bounds internal retries on storage-level
// concurrency conflicts before the failure is surfaced.
const maxReserveAttempts = 3

// EventStore provides the sale event lookup the orchestrator needs.
// Implemented by repository.SaleEventRepo.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (*model.SaleEvent, error)
}

// Ledger is the inventory authority.  Reserve must be atomic across
// all lines (all decrement or none do) and safe under concurrent calls
// for the same event; Release is the compensating re-credit.
// Implemented by repository.StockRepo.
type Ledger interface {
	Reserve(ctx context.Context, eventID uint64, items []model.LineItem) ([]model.OrderItem, error)
	Release(ctx context.Context, eventID uint64, items []model.OrderItem) error
}

// OrderStore records completed purchases.  Implemented by
// repository.OrderRepo.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
}

// Notifier receives a fire-and-forget signal after a purchase has
// committed.  Failures are logged and never affect the order outcome.
type Notifier interface {
	OrderConfirmed(ctx context.Context, ev *model.SaleEvent, o *model.Order) error
}

// Orchestrator coordinates window validation, stock reservation and
// order recording as one logically atomic PlaceOrder operation.  All
// collaborators are injected at construction.
type Orchestrator struct {
	events   EventStore
	ledger   Ledger
	orders   OrderStore
	notifier Notifier

	// now is the clock; injectable for tests.
	now func() time.Time
}

// NewOrchestrator wires the orchestrator's collaborators.  notifier
// may be nil when no broker is configured.
func NewOrchestrator(events EventStore, ledger Ledger, orders OrderStore, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		events:   events,
		ledger:   ledger,
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
	}
}

// PlaceOrder validates the request, re-checks the sale window,
// reserves stock and records the purchase.  The outcome is always one
// of: an order exists and stock was decremented, or neither happened.
//
// Error mapping for callers: ErrInvalidRequest, ErrSaleNotOpen,
// repository.ErrEventNotFound, repository.ErrUnknownProduct,
// *repository.InsufficientStockError; anything else is internal.
func (s *Orchestrator) PlaceOrder(ctx context.Context, userID, eventID uint64, items []model.LineItem) (*model.Order, error) {
	merged, err := normalizeItems(items)
	if err != nil {
		return nil, err
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !IsOpen(ev, s.now().UTC()) {
		return nil, ErrSaleNotOpen
	}

	// Reserve with a bounded retry on deadlock-style conflicts.  Any
	// business failure (unknown product, insufficient stock) aborts
	// immediately with no side effects.
	var reserved []model.OrderItem
	for attempt := 1; ; attempt++ {
		reserved, err = s.ledger.Reserve(ctx, eventID, merged)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) && attempt < maxReserveAttempts {
			continue
		}
		return nil, err
	}

	order := &model.Order{
		UserID:  userID,
		EventID: eventID,
		Items:   reserved,
	}
	order.TotalCents = order.Total()

	if err := s.orders.Create(ctx, order); err != nil {
		// Stock was already decremented; re-credit it so a consumed
		// pool without a matching order can never persist.
		if relErr := s.ledger.Release(ctx, eventID, reserved); relErr != nil {
			log.Printf("sale: compensating release failed for event %d: %v", eventID, relErr)
		}
		return nil, fmt.Errorf("record order: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.OrderConfirmed(ctx, ev, order); err != nil {
			log.Printf("sale: order notification failed for order %d: %v", order.ID, err)
		}
	}
	return order, nil
}

// normalizeItems validates request shape and merges duplicate product
// ids so the ledger sees at most one line per product.
func normalizeItems(items []model.LineItem) ([]model.LineItem, error) {
	if len(items) == 0 {
		return nil, ErrInvalidRequest
	}
	merged := make([]model.LineItem, 0, len(items))
	index := make(map[uint64]int, len(items))
	for _, it := range items {
		if it.ProductID == 0 || it.Quantity < 1 {
			return nil, ErrInvalidRequest
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged, nil
}
