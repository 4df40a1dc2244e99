package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flash-sale-backend/internal/config"
	"github.com/iliyamo/flash-sale-backend/internal/middleware"
	"github.com/iliyamo/flash-sale-backend/internal/model"
	"github.com/iliyamo/flash-sale-backend/internal/repository"
	"github.com/iliyamo/flash-sale-backend/internal/sale"
)

// OrderHandler exposes the purchase endpoint and the read-only order
// projections.  All the hard work happens in the sale orchestrator;
// this layer binds requests and maps errors to status codes.
type OrderHandler struct {
	Cfg          config.Config
	Orchestrator *sale.Orchestrator
	Orders       *repository.OrderRepo
}

func NewOrderHandler(cfg config.Config, orch *sale.Orchestrator, orders *repository.OrderRepo) *OrderHandler {
	return &OrderHandler{Cfg: cfg, Orchestrator: orch, Orders: orders}
}

// ----- DTOs -----

type orderLineReq struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type placeOrderReq struct {
	EventID uint64         `json:"event_id"`
	Items   []orderLineReq `json:"items"`
}

type orderItemResp struct {
	ProductID  uint64 `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

type orderResp struct {
	ID         uint64          `json:"id"`
	UserID     uint64          `json:"user_id"`
	EventID    uint64          `json:"event_id"`
	Items      []orderItemResp `json:"items"`
	TotalCents int64           `json:"total_cents"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toOrderResp(o *model.Order) orderResp {
	items := make([]orderItemResp, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResp{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			PriceCents: it.PriceCents,
		})
	}
	return orderResp{
		ID:         o.ID,
		UserID:     o.UserID,
		EventID:    o.EventID,
		Items:      items,
		TotalCents: o.TotalCents,
		CreatedAt:  o.CreatedAt,
	}
}

// Place handles POST /v1/orders: the flash-sale purchase itself.
func (h *OrderHandler) Place(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req placeOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
	}
	items := make([]model.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	order, err := h.Orchestrator.PlaceOrder(ctx, uid, req.EventID, items)
	if err != nil {
		return h.mapPlaceError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResp(order))
}

// mapPlaceError translates orchestrator failures into API responses.
func (h *OrderHandler) mapPlaceError(c echo.Context, err error) error {
	var ise *repository.InsufficientStockError
	switch {
	case errors.Is(err, sale.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order request"})
	case errors.Is(err, sale.ErrSaleNotOpen):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "sale is not open"})
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrUnknownProduct):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not part of this sale"})
	case errors.As(err, &ise):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":      "insufficient stock",
			"product_id": ise.ProductID,
			"requested":  ise.Requested,
			"available":  ise.Available,
		})
	}
	c.Logger().Errorf("place order failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "place order failed"})
}

// Leaderboard handles GET /v1/events/:id/orders: the first (or last)
// buyers of a sale event, capped at the configured limit.
func (h *OrderHandler) Leaderboard(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	earliest := true
	switch c.QueryParam("order") {
	case "", "earliest":
	case "latest":
		earliest = false
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order must be earliest or latest"})
	}
	limit := h.Cfg.LeaderboardLimit
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		if n < limit {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	orders, err := h.Orders.ListByEvent(ctx, eventID, limit, earliest)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list orders failed"})
	}
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

// MyOrders handles GET /v1/me/orders: the caller's purchase history.
func (h *OrderHandler) MyOrders(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	orders, err := h.Orders.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list orders failed"})
	}
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}
