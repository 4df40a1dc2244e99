// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderConfirmedEvent is published after a flash-sale purchase has been
// recorded.  It carries enough information for downstream consumers to
// log, notify, or feed analytics without querying the primary database.
type OrderConfirmedEvent struct {
	OrderID        uint64           `json:"order_id"`
	UserID         uint64           `json:"user_id"`
	EventID        uint64           `json:"event_id"`
	EventTitle     string           `json:"event_title"`
	Items          []OrderEventItem `json:"items"`
	TotalCents     int64            `json:"total_cents"`
	PurchasedAt    string           `json:"purchased_at"`
}

// OrderEventItem is one line of a confirmed order as carried on the wire.
type OrderEventItem struct {
	ProductID  uint64 `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// UserRegisteredEvent is published when a new account is created.
type UserRegisteredEvent struct {
	UserID       uint64 `json:"user_id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	RegisteredAt string `json:"registered_at"`
}
