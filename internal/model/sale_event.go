package model

import "time"

// Discount types applied by a sale event.  A percentage discount takes
// DiscountValue as a whole percentage (0–100) off the product's base
// price; a fixed discount takes DiscountValue as an absolute amount in
// cents off the base price.
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED"
)

// Schedule options for a sale event.  A one-off event runs once; a
// recurring event carries a NextStartsAt instant it is rolled forward
// to after it closes.
const (
	ScheduleOneOff    = "ONE_OFF"
	ScheduleRecurring = "RECURRING"
)

// Activation states of a sale event.  The status column is a cache
// maintained by the activation sweep; the purchase path never trusts
// it and re-derives openness from the window itself.
const (
	EventScheduled = "SCHEDULED"
	EventActive    = "ACTIVE"
	EventClosed    = "CLOSED"
)

// SaleEvent is a time-boxed discount campaign over a set of products
// with fixed stock pools.  StartsAt and EndsAt are single combined
// instants in UTC; date and time-of-day are never stored or compared
// separately.
//
// Fields:
//  ID            – primary key identifier.
//  Title         – unique campaign title.
//  Description   – optional free-form description.
//  DiscountType  – PERCENTAGE or FIXED.
//  DiscountValue – percentage (0–100) or cents, per DiscountType.
//  StartsAt      – when the sale window opens (UTC).
//  EndsAt        – when the window closes; nil means open-ended.
//  Schedule      – ONE_OFF or RECURRING.
//  NextStartsAt  – next occurrence for recurring events; nil otherwise.
//  Status        – cached SCHEDULED/ACTIVE/CLOSED state.
//  Disabled      – administrative kill switch; a disabled event is
//                  never open regardless of its window.
//  Stock         – the per-product stock entries owned by this event.
type SaleEvent struct {
	ID            uint64           // sale_events.id
	Title         string           // sale_events.title
	Description   string           // sale_events.description
	DiscountType  string           // sale_events.discount_type
	DiscountValue int64            // sale_events.discount_value
	StartsAt      time.Time        // sale_events.starts_at
	EndsAt        *time.Time       // sale_events.ends_at (nullable)
	Schedule      string           // sale_events.schedule_option
	NextStartsAt  *time.Time       // sale_events.next_starts_at (nullable)
	Status        string           // sale_events.status
	Disabled      bool             // sale_events.disabled
	Stock         []SaleStockEntry // sale_stock rows owned by the event
	CreatedAt     time.Time        // sale_events.created_at
	UpdatedAt     time.Time        // sale_events.updated_at
}

// SaleStockEntry is one product's discounted price and remaining stock
// within a sale event.  Entries have no lifecycle of their own; they
// are created with the event and mutated only through the inventory
// ledger's reserve/release operations.
type SaleStockEntry struct {
	EventID    uint64 // sale_stock.event_id
	ProductID  uint64 // sale_stock.product_id
	PriceCents int64  // sale_stock.price_cents (discounted unit price)
	StockCount int64  // sale_stock.stock_count (never negative)
}

// Entry returns the stock entry for the given product, or nil when the
// product is not part of the event.
func (e *SaleEvent) Entry(productID uint64) *SaleStockEntry {
	for i := range e.Stock {
		if e.Stock[i].ProductID == productID {
			return &e.Stock[i]
		}
	}
	return nil
}

// DiscountedPrice derives the sale unit price from a product's base
// price in cents.  The result is clamped at zero so an oversized fixed
// discount can never produce a negative price.
func DiscountedPrice(baseCents int64, discountType string, discountValue int64) int64 {
	var p int64
	switch discountType {
	case DiscountFixed:
		p = baseCents - discountValue
	case DiscountPercentage:
		p = baseCents - baseCents*discountValue/100
	default:
		p = baseCents
	}
	if p < 0 {
		return 0
	}
	return p
}
