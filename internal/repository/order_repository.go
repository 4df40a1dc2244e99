package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

// OrderRepo records purchases and serves the read-only projections
// over them (leaderboard, purchase history).  Orders are append-only:
// there is no update or delete here on purpose.
type OrderRepo struct{ db *sql.DB }

// NewOrderRepo constructs an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create persists an order and its line items in one transaction and
// populates the generated ID and the database-assigned creation
// timestamp.  created_at is DATETIME(6), so timestamps are strictly
// usable as a total order for the leaderboard.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
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
		"INSERT INTO orders (user_id, event_id, total_cents) VALUES (?,?,?)",
		o.UserID, o.EventID, o.TotalCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	if len(o.Items) > 0 {
		query := "INSERT INTO order_items (order_id, product_id, quantity, price_cents) VALUES "
		args := make([]interface{}, 0, len(o.Items)*4)
		for i := range o.Items {
			o.Items[i].OrderID = o.ID
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			args = append(args, o.ID, o.Items[i].ProductID, o.Items[i].Quantity, o.Items[i].PriceCents)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.QueryRowContext(ctx,
		"SELECT created_at FROM orders WHERE id=?", o.ID).Scan(&o.CreatedAt); err != nil {
		return err
	}
	o.CreatedAt = o.CreatedAt.UTC()

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListByEvent returns up to limit orders for one sale event sorted by
// purchase time; earliest=true gives the classic leaderboard order
// (first buyers first).  Line items are populated in one follow-up
// query.
func (r *OrderRepo) ListByEvent(ctx context.Context, eventID uint64, limit int, earliest bool) ([]model.Order, error) {
	dir := "DESC"
	if earliest {
		dir = "ASC"
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, event_id, total_cents, created_at FROM orders WHERE event_id=? ORDER BY created_at "+dir+", id "+dir+" LIMIT ?",
		eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectWithItems(ctx, rows)
}

// ListByUser returns a user's purchase history, most recent first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, event_id, total_cents, created_at FROM orders WHERE user_id=? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectWithItems(ctx, rows)
}

// collectWithItems scans order rows and attaches their line items via
// a single IN query, preserving the scan order.
func (r *OrderRepo) collectWithItems(ctx context.Context, rows *sql.Rows) ([]model.Order, error) {
	orders := make([]model.Order, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.EventID, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.CreatedAt = o.CreatedAt.UTC()
		o.Items = make([]model.OrderItem, 0, 1)
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]interface{}, 0, len(orders))
	placeholders := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		placeholders = append(placeholders, "?")
	}
	itemQuery := `SELECT order_id, product_id, quantity, price_cents
	              FROM order_items
	              WHERE order_id IN (` + strings.Join(placeholders, ",") + `)
	              ORDER BY order_id, product_id`
	irows, err := r.db.QueryContext(ctx, itemQuery, ids...)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var it model.OrderItem
		if err := irows.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &it.PriceCents); err != nil {
			return nil, err
		}
		if idx, ok := index[it.OrderID]; ok {
			orders[idx].Items = append(orders[idx].Items, it)
		}
	}
	return orders, irows.Err()
}
