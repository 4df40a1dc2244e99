package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flash-sale-backend/internal/config"
	"github.com/iliyamo/flash-sale-backend/internal/model"
	"github.com/iliyamo/flash-sale-backend/internal/repository"
	"github.com/iliyamo/flash-sale-backend/internal/sale"
)

// SaleEventHandler serves the admin CRUD over sale events plus the
// public listings.  Sale prices are derived server-side from the
// product's base price and the event's discount; clients never send
// prices.
type SaleEventHandler struct {
	Cfg      config.Config
	Events   *repository.SaleEventRepo
	Products *repository.ProductRepo
	Stock    *repository.StockRepo
}

func NewSaleEventHandler(cfg config.Config, ev *repository.SaleEventRepo, p *repository.ProductRepo, st *repository.StockRepo) *SaleEventHandler {
	return &SaleEventHandler{Cfg: cfg, Events: ev, Products: p, Stock: st}
}

// ----- DTOs -----

type stockEntryReq struct {
	ProductID  uint64 `json:"product_id"`
	StockCount int64  `json:"stock_count"`
}

type saleEventReq struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	DiscountType  string          `json:"discount_type"`  // PERCENTAGE | FIXED
	DiscountValue int64           `json:"discount_value"` // percent or cents
	StartsAt      time.Time       `json:"starts_at"`
	EndsAt        *time.Time      `json:"ends_at"`
	Schedule      string          `json:"schedule"` // ONE_OFF | RECURRING
	NextStartsAt  *time.Time      `json:"next_starts_at"`
	Disabled      bool            `json:"disabled"`
	Stock         []stockEntryReq `json:"stock"`
}

type stockEntryResp struct {
	ProductID  uint64 `json:"product_id"`
	PriceCents int64  `json:"price_cents"`
	StockCount int64  `json:"stock_count"`
}

type saleEventResp struct {
	ID            uint64           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	DiscountType  string           `json:"discount_type"`
	DiscountValue int64            `json:"discount_value"`
	StartsAt      time.Time        `json:"starts_at"`
	EndsAt        *time.Time       `json:"ends_at,omitempty"`
	Schedule      string           `json:"schedule"`
	NextStartsAt  *time.Time       `json:"next_starts_at,omitempty"`
	Status        string           `json:"status"`
	Disabled      bool             `json:"disabled"`
	Stock         []stockEntryResp `json:"stock"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func toSaleEventResp(ev *model.SaleEvent) saleEventResp {
	stock := make([]stockEntryResp, 0, len(ev.Stock))
	for _, e := range ev.Stock {
		stock = append(stock, stockEntryResp{
			ProductID:  e.ProductID,
			PriceCents: e.PriceCents,
			StockCount: e.StockCount,
		})
	}
	return saleEventResp{
		ID:            ev.ID,
		Title:         ev.Title,
		Description:   ev.Description,
		DiscountType:  ev.DiscountType,
		DiscountValue: ev.DiscountValue,
		StartsAt:      ev.StartsAt,
		EndsAt:        ev.EndsAt,
		Schedule:      ev.Schedule,
		NextStartsAt:  ev.NextStartsAt,
		Status:        ev.Status,
		Disabled:      ev.Disabled,
		Stock:         stock,
		CreatedAt:     ev.CreatedAt,
		UpdatedAt:     ev.UpdatedAt,
	}
}

// validate normalizes the request and returns a client-facing message
// when the payload is unusable.
func (req *saleEventReq) validate(minStock int) string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title required"
	}
	req.DiscountType = strings.ToUpper(strings.TrimSpace(req.DiscountType))
	switch req.DiscountType {
	case model.DiscountPercentage:
		if req.DiscountValue < 0 || req.DiscountValue > 100 {
			return "percentage discount must be between 0 and 100"
		}
	case model.DiscountFixed:
		if req.DiscountValue < 0 {
			return "fixed discount must not be negative"
		}
	default:
		return "discount_type must be PERCENTAGE or FIXED"
	}
	if req.StartsAt.IsZero() {
		return "starts_at required"
	}
	if req.EndsAt != nil && !req.EndsAt.After(req.StartsAt) {
		return "ends_at must be after starts_at"
	}
	req.Schedule = strings.ToUpper(strings.TrimSpace(req.Schedule))
	if req.Schedule == "" {
		req.Schedule = model.ScheduleOneOff
	}
	switch req.Schedule {
	case model.ScheduleOneOff:
		if req.NextStartsAt != nil {
			return "next_starts_at is only valid for recurring events"
		}
	case model.ScheduleRecurring:
		if req.NextStartsAt == nil {
			return "recurring events require next_starts_at"
		}
		if !req.NextStartsAt.After(req.StartsAt) {
			return "next_starts_at must be after starts_at"
		}
	default:
		return "schedule must be ONE_OFF or RECURRING"
	}
	if len(req.Stock) == 0 {
		return "at least one stock entry required"
	}
	seen := make(map[uint64]bool, len(req.Stock))
	for _, e := range req.Stock {
		if e.ProductID == 0 {
			return "stock entries require product_id"
		}
		if seen[e.ProductID] {
			return "duplicate product in stock entries"
		}
		seen[e.ProductID] = true
		if e.StockCount < int64(minStock) {
			return "stock_count below the minimum of " + strconv.Itoa(minStock) + " per product"
		}
	}
	return ""
}

// buildEvent resolves products and derives discounted prices for every
// stock entry.  Returns ErrProductNotFound when a referenced product
// does not exist.
func (h *SaleEventHandler) buildEvent(ctx context.Context, req *saleEventReq) (*model.SaleEvent, error) {
	ids := make([]uint64, 0, len(req.Stock))
	for _, e := range req.Stock {
		ids = append(ids, e.ProductID)
	}
	products, err := h.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	ev := &model.SaleEvent{
		Title:         req.Title,
		Description:   req.Description,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		StartsAt:      req.StartsAt.UTC(),
		Schedule:      req.Schedule,
		Disabled:      req.Disabled,
	}
	if req.EndsAt != nil {
		t := req.EndsAt.UTC()
		ev.EndsAt = &t
	}
	if req.NextStartsAt != nil {
		t := req.NextStartsAt.UTC()
		ev.NextStartsAt = &t
	}
	ev.Status = sale.DesiredStatus(ev, time.Now().UTC())

	for _, e := range req.Stock {
		p, ok := products[e.ProductID]
		if !ok {
			return nil, repository.ErrProductNotFound
		}
		ev.Stock = append(ev.Stock, model.SaleStockEntry{
			ProductID:  e.ProductID,
			PriceCents: model.DiscountedPrice(p.PriceCents, ev.DiscountType, ev.DiscountValue),
			StockCount: e.StockCount,
		})
	}
	return ev, nil
}

// Create registers a new sale event with its stock pools (admin only).
func (h *SaleEventHandler) Create(c echo.Context) error {
	var req saleEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(h.Cfg.MinStockPerProduct); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.buildEvent(ctx, &req)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown product in stock entries"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve products failed"})
	}
	if err := h.Events.CreateWithStock(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrDuplicateTitle) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "title already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	created, err := h.Events.GetByID(ctx, ev.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusCreated, toSaleEventResp(created))
}

// Get returns one sale event with its stock entries.
func (h *SaleEventHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusOK, toSaleEventResp(ev))
}

// List returns all sale events; ?active=true filters to the cached
// ACTIVE status (good enough for listings; purchases re-check the
// window).
func (h *SaleEventHandler) List(c echo.Context) error {
	var activeOnly *bool
	if q := c.QueryParam("active"); q != "" {
		b := q == "true" || q == "1"
		activeOnly = &b
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	events, err := h.Events.List(ctx, activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]saleEventResp, 0, len(events))
	for i := range events {
		out = append(out, toSaleEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Availability returns the live remaining stock for one product in an
// event.  Unlike the event detail this read never goes through the
// response cache, so buyers polling during a sale see current counts.
func (h *SaleEventHandler) Availability(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	count, err := h.Stock.Available(ctx, eventID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownProduct) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not part of this sale"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load stock failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id":    eventID,
		"product_id":  productID,
		"stock_count": count,
	})
}

// Update rewrites an event and replaces its stock pools (admin only).
// Prices are re-derived from the current product base prices.
func (h *SaleEventHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req saleEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(h.Cfg.MinStockPerProduct); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.buildEvent(ctx, &req)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown product in stock entries"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve products failed"})
	}
	ev.ID = id
	if err := h.Events.Update(ctx, ev); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrDuplicateTitle):
			return c.JSON(http.StatusConflict, echo.Map{"error": "title already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
	updated, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusOK, toSaleEventResp(updated))
}

// Delete removes an event and its stock pools (admin only).  Orders
// against the event are kept.
func (h *SaleEventHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Events.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
