package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

// StockRepo is the inventory ledger: the single authority over
// sale_stock counters.  Reserve validates and decrements every
// requested line inside one transaction so that partial decrements
// across a multi-item order are never observable; Release re-credits a
// reservation as compensation when order persistence fails after the
// decrement committed.
//
// Two layers of protection keep concurrent reservations from
// oversubscribing a pool: a per-event mutex serializes reservations in
// this process, and the conditional decrement (stock_count >= ?) plus
// row locks guard against anything the mutex cannot see, such as a
// second instance of the service on the same database.
type StockRepo struct {
	db *sql.DB

	mu      sync.Mutex
	eventMu map[uint64]*sync.Mutex
}

// NewStockRepo constructs a StockRepo bound to the given database.
func NewStockRepo(db *sql.DB) *StockRepo {
	return &StockRepo{db: db, eventMu: make(map[uint64]*sync.Mutex)}
}

// lockEvent returns the mutex serializing reservations for one event,
// creating it on first use.  Unrelated events never contend.
func (r *StockRepo) lockEvent(eventID uint64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.eventMu[eventID]
	if !ok {
		m = &sync.Mutex{}
		r.eventMu[eventID] = m
	}
	return m
}

// Reserve atomically checks and decrements stock for every requested
// line.  On success it returns the order items with unit prices
// captured at reservation time.  On any failure nothing is decremented:
//
//   - ErrUnknownProduct when a line references a product outside the event
//   - *InsufficientStockError when a line exceeds the available count
//   - ErrConflict on a storage-level deadlock (caller may retry)
func (r *StockRepo) Reserve(ctx context.Context, eventID uint64, items []model.LineItem) ([]model.OrderItem, error) {
	mu := r.lockEvent(eventID)
	mu.Lock()
	defer mu.Unlock()

	// Lock rows in a stable order so two multi-line reservations can
	// never deadlock each other.
	sorted := make([]model.LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	reserved := make([]model.OrderItem, 0, len(sorted))
	for _, it := range sorted {
		var price, stock int64
		err := tx.QueryRowContext(ctx,
			"SELECT price_cents, stock_count FROM sale_stock WHERE event_id=? AND product_id=? FOR UPDATE",
			eventID, it.ProductID).Scan(&price, &stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrUnknownProduct
			}
			return nil, mapLockErr(err)
		}
		if stock < it.Quantity {
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: stock,
			}
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE sale_stock SET stock_count = stock_count - ? WHERE event_id=? AND product_id=? AND stock_count >= ?",
			it.Quantity, eventID, it.ProductID, it.Quantity)
		if err != nil {
			return nil, mapLockErr(err)
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			// The row was read under lock, so a miss here means the
			// guard condition failed out from under us.
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: stock,
			}
		}
		reserved = append(reserved, model.OrderItem{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			PriceCents: price,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, mapLockErr(err)
	}
	committed = true
	return reserved, nil
}

// Release re-credits previously reserved quantities.  It is the
// compensating half of Reserve: invoked when the order record could
// not be persisted after the decrement committed.  Releasing is
// idempotent per call site (the orchestrator calls it at most once per
// failed reservation) and never drives a counter negative.
func (r *StockRepo) Release(ctx context.Context, eventID uint64, items []model.OrderItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			"UPDATE sale_stock SET stock_count = stock_count + ? WHERE event_id=? AND product_id=?",
			it.Quantity, eventID, it.ProductID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Available returns the remaining stock for one entry, mainly for
// handlers that expose a read-only stock view.
func (r *StockRepo) Available(ctx context.Context, eventID, productID uint64) (int64, error) {
	var stock int64
	err := r.db.QueryRowContext(ctx,
		"SELECT stock_count FROM sale_stock WHERE event_id=? AND product_id=?",
		eventID, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnknownProduct
		}
		return 0, err
	}
	return stock, nil
}

// mapLockErr converts MySQL deadlock (1213) and lock wait timeout
// (1205) errors into ErrConflict so the orchestrator can retry them;
// anything else passes through unchanged.
func mapLockErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		if me.Number == 1213 || me.Number == 1205 {
			return ErrConflict
		}
	}
	return err
}
