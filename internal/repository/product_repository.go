package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

// ProductRepo encapsulates database operations for the product
// catalog.  The purchase path never touches this repository; sale
// events snapshot prices at creation time.
type ProductRepo struct{ db *sql.DB }

// NewProductRepo constructs a ProductRepo given a DB handle.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// Create inserts a product and populates its generated ID.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO products (name, description, category, price_cents) VALUES (?,?,?,?)",
		p.Name, p.Description, p.Category, p.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a single product.  Returns ErrProductNotFound when
// the id does not exist.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, category, price_cents, created_at, updated_at FROM products WHERE id=?",
		id).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByIDs fetches several products at once, keyed by id.  Missing ids
// are simply absent from the map; callers decide whether that is an
// error.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error) {
	out := make(map[uint64]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := "SELECT id, name, description, category, price_cents, created_at, updated_at FROM products WHERE id IN ("
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// List returns all products ordered by creation time descending.
func (r *ProductRepo) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, category, price_cents, created_at, updated_at FROM products ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Update modifies the mutable fields of a product.  Returns
// ErrProductNotFound when the id does not exist.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name=?, description=?, category=?, price_cents=? WHERE id=?",
		p.Name, p.Description, p.Category, p.PriceCents, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Could also mean an identical update; re-check existence.
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}
