package model

import "time"

// Order is an immutable purchase record.  It is created exactly once,
// atomically with the stock decrement that backed it, and is never
// updated or deleted afterwards.  CreatedAt is the purchase instant
// and defines the leaderboard order.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – purchasing user (reference by id, never owned).
//  EventID    – the sale event purchased from.
//  Items      – one or more line items.
//  TotalCents – server-computed sum of unit price × quantity.
//  CreatedAt  – purchase timestamp (microsecond precision).
type Order struct {
	ID         uint64      // orders.id
	UserID     uint64      // orders.user_id
	EventID    uint64      // orders.event_id
	Items      []OrderItem // order_items rows
	TotalCents int64       // orders.total_cents
	CreatedAt  time.Time   // orders.created_at
}

// OrderItem is one (product, quantity) line within an order.  The unit
// price is the event's discounted price captured at reservation time,
// never a value supplied by the caller.
type OrderItem struct {
	OrderID    uint64 // order_items.order_id
	ProductID  uint64 // order_items.product_id
	Quantity   int64  // order_items.quantity
	PriceCents int64  // order_items.price_cents (unit price at reservation)
}

// LineItem is a transient (product, quantity) request pair.  It exists
// only for the duration of one reservation attempt and resolves to
// either a committed order plus decremented stock, or no observable
// change at all.
type LineItem struct {
	ProductID uint64
	Quantity  int64
}

// Total recomputes the order total from its line items.
func (o *Order) Total() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.PriceCents * it.Quantity
	}
	return sum
}
