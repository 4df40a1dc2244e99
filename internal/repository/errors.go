// Package repository defines error values that are reused across
// multiple repositories.  These sentinels allow higher layers such as
// the orchestrator and handlers to distinguish failure scenarios with
// errors.Is/errors.As and translate them into the HTTP error taxonomy
// without inspecting SQL driver errors themselves.
package repository

import (
	"errors"
	"fmt"
)

// ErrEventNotFound is returned when a sale event id does not exist.
// Handlers translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("sale event not found")

// ErrProductNotFound is returned when a catalog product id does not
// exist.  Handlers translate this into an HTTP 404 response.
var ErrProductNotFound = errors.New("product not found")

// ErrUnknownProduct is returned when a requested product is not part
// of the sale event's stock entries.  Distinct from ErrProductNotFound
// so callers can tell "no such product" from "not on sale here".
var ErrUnknownProduct = errors.New("product not in sale event")

// ErrDuplicateTitle is returned when creating a sale event whose title
// already exists.  Handlers translate this into an HTTP 409 response.
var ErrDuplicateTitle = errors.New("sale event title already exists")

// ErrEmailExists is returned when registering a user with an email
// that is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when the storage layer detects a concurrency
// conflict (deadlock or lock wait timeout) while reserving stock.  The
// orchestrator retries a bounded number of times before surfacing the
// failure as internal.
var ErrConflict = errors.New("concurrency conflict")

// InsufficientStockError reports that a stock entry cannot cover the
// requested quantity.  Available carries the count observed under lock
// so clients can decide whether to retry with a smaller quantity.
type InsufficientStockError struct {
	ProductID uint64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
