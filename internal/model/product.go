package model

import "time"

// Product is a catalog item with its regular (non-sale) price.  Sale
// events snapshot the discounted price at creation time, so the base
// price here is only consulted when an admin creates or updates an
// event, never on the purchase path.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name.
//  Description – free-form description.
//  Category    – coarse grouping used by the catalog listing.
//  PriceCents  – regular price in cents.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Product struct {
	ID          uint64    // products.id
	Name        string    // products.name
	Description string    // products.description
	Category    string    // products.category
	PriceCents  int64     // products.price_cents
	CreatedAt   time.Time // products.created_at
	UpdatedAt   time.Time // products.updated_at
}
