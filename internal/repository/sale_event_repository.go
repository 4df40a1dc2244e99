package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

// SaleEventRepo provides persistence for sale events and the stock
// entries they own.  Stock counts themselves are mutated only by the
// StockRepo ledger; this repository covers admin CRUD and the reads
// used by the activation sweep and the purchase path.
type SaleEventRepo struct{ db *sql.DB }

// NewSaleEventRepo constructs a SaleEventRepo bound to the given database.
func NewSaleEventRepo(db *sql.DB) *SaleEventRepo { return &SaleEventRepo{db: db} }

const eventColumns = `id, title, description, discount_type, discount_value,
	starts_at, ends_at, schedule_option, next_starts_at, status, disabled,
	created_at, updated_at`

// CreateWithStock inserts the event row and all of its stock entries
// in one transaction.  The generated ID is populated on the passed
// event.  Returns ErrDuplicateTitle when the title is taken.
func (r *SaleEventRepo) CreateWithStock(ctx context.Context, ev *model.SaleEvent) error {
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

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sale_events
		 (title, description, discount_type, discount_value, starts_at, ends_at,
		  schedule_option, next_starts_at, status, disabled)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		ev.Title, ev.Description, ev.DiscountType, ev.DiscountValue,
		ev.StartsAt, nullTime(ev.EndsAt), ev.Schedule, nullTime(ev.NextStartsAt),
		ev.Status, ev.Disabled)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateTitle
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	for i := range ev.Stock {
		ev.Stock[i].EventID = ev.ID
	}
	if err := insertStockBulk(ctx, tx, ev.Stock); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertStockBulk inserts multiple sale_stock rows in a single
// statement.  Passing an empty slice has no effect and returns nil.
func insertStockBulk(ctx context.Context, tx *sql.Tx, entries []model.SaleStockEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query := "INSERT INTO sale_stock (event_id, product_id, price_cents, stock_count) VALUES "
	args := make([]interface{}, 0, len(entries)*4)
	for i, e := range entries {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, e.EventID, e.ProductID, e.PriceCents, e.StockCount)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID loads an event together with its stock entries.  Returns
// ErrEventNotFound when the id does not exist.
func (r *SaleEventRepo) GetByID(ctx context.Context, id uint64) (*model.SaleEvent, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM sale_events WHERE id=?", id)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT event_id, product_id, price_cents, stock_count FROM sale_stock WHERE event_id=? ORDER BY product_id",
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.SaleStockEntry
		if err := rows.Scan(&e.EventID, &e.ProductID, &e.PriceCents, &e.StockCount); err != nil {
			return nil, err
		}
		ev.Stock = append(ev.Stock, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ev, nil
}

// List returns events ordered by creation time descending, with their
// stock entries populated in a single follow-up query.  When
// activeOnly is non-nil the result is filtered on the cached status.
func (r *SaleEventRepo) List(ctx context.Context, activeOnly *bool) ([]model.SaleEvent, error) {
	query := "SELECT " + eventColumns + " FROM sale_events"
	args := make([]interface{}, 0, 1)
	if activeOnly != nil {
		if *activeOnly {
			query += " WHERE status = ?"
		} else {
			query += " WHERE status <> ?"
		}
		args = append(args, model.EventActive)
	}
	query += " ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.SaleEvent, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		index[ev.ID] = len(events)
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	// Populate stock entries for all events in one query.
	ids := make([]interface{}, 0, len(events))
	placeholders := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
		placeholders = append(placeholders, "?")
	}
	stockQuery := `SELECT event_id, product_id, price_cents, stock_count
	               FROM sale_stock
	               WHERE event_id IN (` + strings.Join(placeholders, ",") + `)
	               ORDER BY event_id, product_id`
	srows, err := r.db.QueryContext(ctx, stockQuery, ids...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var e model.SaleStockEntry
		if err := srows.Scan(&e.EventID, &e.ProductID, &e.PriceCents, &e.StockCount); err != nil {
			return nil, err
		}
		if idx, ok := index[e.EventID]; ok {
			events[idx].Stock = append(events[idx].Stock, e)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Update rewrites the event row and replaces its stock entries.  Used
// by the admin update path only; the purchase path never rewrites
// entries wholesale.  Returns ErrEventNotFound when the id is absent.
func (r *SaleEventRepo) Update(ctx context.Context, ev *model.SaleEvent) error {
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

	res, err := tx.ExecContext(ctx,
		`UPDATE sale_events SET title=?, description=?, discount_type=?, discount_value=?,
		 starts_at=?, ends_at=?, schedule_option=?, next_starts_at=?, status=?, disabled=?
		 WHERE id=?`,
		ev.Title, ev.Description, ev.DiscountType, ev.DiscountValue,
		ev.StartsAt, nullTime(ev.EndsAt), ev.Schedule, nullTime(ev.NextStartsAt),
		ev.Status, ev.Disabled, ev.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateTitle
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM sale_events WHERE id=?", ev.ID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEventNotFound
			}
			return err
		}
	}
	if ev.Stock != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sale_stock WHERE event_id=?", ev.ID); err != nil {
			return err
		}
		for i := range ev.Stock {
			ev.Stock[i].EventID = ev.ID
		}
		if err := insertStockBulk(ctx, tx, ev.Stock); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes an event and (via FK cascade) its stock entries.
// Returns ErrEventNotFound when the id does not exist.
func (r *SaleEventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sale_events WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ListForSweep loads every event without stock entries.  The
// activation sweep only needs windows, schedule fields and the cached
// status, so stock rows are deliberately skipped.
func (r *SaleEventRepo) ListForSweep(ctx context.Context) ([]model.SaleEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM sale_events")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.SaleEvent, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// UpdateStatusBatch sets the cached status for a batch of events in
// one statement and returns the number of rows changed.
func (r *SaleEventRepo) UpdateStatusBatch(ctx context.Context, ids []uint64, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := "UPDATE sale_events SET status=? WHERE id IN ("
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, status)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RollForward moves a closed recurring event to its next occurrence:
// the window shifts so its duration is preserved, the next start date
// is cleared, and the cached status returns to SCHEDULED.
func (r *SaleEventRepo) RollForward(ctx context.Context, ev *model.SaleEvent) error {
	if ev.NextStartsAt == nil {
		return nil
	}
	next := *ev.NextStartsAt
	var newEnd interface{}
	if ev.EndsAt != nil {
		newEnd = next.Add(ev.EndsAt.Sub(ev.StartsAt))
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE sale_events SET starts_at=?, ends_at=?, next_starts_at=NULL, status=?
		 WHERE id=? AND next_starts_at IS NOT NULL`,
		next, newEnd, model.EventScheduled, ev.ID)
	return err
}

// scanEvent reads one sale_events row from either *sql.Row or
// *sql.Rows via the common Scan signature.
func scanEvent(row interface{ Scan(...interface{}) error }) (*model.SaleEvent, error) {
	var ev model.SaleEvent
	var endsAt, nextStartsAt sql.NullTime
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.DiscountType, &ev.DiscountValue,
		&ev.StartsAt, &endsAt, &ev.Schedule, &nextStartsAt, &ev.Status, &ev.Disabled,
		&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if endsAt.Valid {
		t := endsAt.Time.UTC()
		ev.EndsAt = &t
	}
	if nextStartsAt.Valid {
		t := nextStartsAt.Time.UTC()
		ev.NextStartsAt = &t
	}
	ev.StartsAt = ev.StartsAt.UTC()
	return &ev, nil
}

// nullTime converts an optional time into a driver-friendly value.
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
