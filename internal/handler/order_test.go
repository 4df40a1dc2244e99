package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flash-sale-backend/internal/config"
	"github.com/iliyamo/flash-sale-backend/internal/model"
	"github.com/iliyamo/flash-sale-backend/internal/repository"
	"github.com/iliyamo/flash-sale-backend/internal/sale"
)

// Minimal in-memory collaborators for driving the orchestrator through
// the HTTP layer.

type stubEvents struct{ ev *model.SaleEvent }

func (s stubEvents) GetByID(_ context.Context, id uint64) (*model.SaleEvent, error) {
	if s.ev == nil || s.ev.ID != id {
		return nil, repository.ErrEventNotFound
	}
	return s.ev, nil
}

type stubLedger struct {
	stock  map[uint64]int64
	prices map[uint64]int64
}

func (s *stubLedger) Reserve(_ context.Context, _ uint64, items []model.LineItem) ([]model.OrderItem, error) {
	for _, it := range items {
		avail, ok := s.stock[it.ProductID]
		if !ok {
			return nil, repository.ErrUnknownProduct
		}
		if avail < it.Quantity {
			return nil, &repository.InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity, Available: avail}
		}
	}
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		s.stock[it.ProductID] -= it.Quantity
		out = append(out, model.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, PriceCents: s.prices[it.ProductID]})
	}
	return out, nil
}

func (s *stubLedger) Release(_ context.Context, _ uint64, items []model.OrderItem) error {
	for _, it := range items {
		s.stock[it.ProductID] += it.Quantity
	}
	return nil
}

type stubOrders struct{ created []*model.Order }

func (s *stubOrders) Create(_ context.Context, o *model.Order) error {
	o.ID = uint64(len(s.created) + 1)
	o.CreatedAt = time.Now().UTC()
	s.created = append(s.created, o)
	return nil
}

func newPlaceRequest(t *testing.T, body string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", userID)
	}
	return c, rec
}

func openSaleEvent() *model.SaleEvent {
	return &model.SaleEvent{
		ID:       1,
		Title:    "Launch Sale",
		StartsAt: time.Now().UTC().Add(-time.Hour),
		Schedule: model.ScheduleOneOff,
		Status:   model.EventActive,
	}
}

func newOrderHandler(ev *model.SaleEvent, ledger *stubLedger) *OrderHandler {
	orch := sale.NewOrchestrator(stubEvents{ev: ev}, ledger, &stubOrders{}, nil)
	return NewOrderHandler(config.Config{LeaderboardLimit: 50}, orch, nil)
}

func TestPlaceOrderEndpoint(t *testing.T) {
	ledger := &stubLedger{stock: map[uint64]int64{7: 10}, prices: map[uint64]int64{7: 2500}}
	h := newOrderHandler(openSaleEvent(), ledger)

	c, rec := newPlaceRequest(t, `{"event_id":1,"items":[{"product_id":7,"quantity":2}]}`, 42)
	require.NoError(t, h.Place(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint64(42), resp.UserID)
	require.Equal(t, int64(5000), resp.TotalCents)
	require.Len(t, resp.Items, 1)
	require.Equal(t, int64(2500), resp.Items[0].PriceCents)
	require.Equal(t, int64(8), ledger.stock[7])
}

func TestPlaceOrderEndpointUnauthorized(t *testing.T) {
	h := newOrderHandler(openSaleEvent(), &stubLedger{stock: map[uint64]int64{}, prices: map[uint64]int64{}})

	c, rec := newPlaceRequest(t, `{"event_id":1,"items":[{"product_id":7,"quantity":1}]}`, 0)
	require.NoError(t, h.Place(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrderEndpointInvalidBody(t *testing.T) {
	h := newOrderHandler(openSaleEvent(), &stubLedger{stock: map[uint64]int64{}, prices: map[uint64]int64{}})

	c, rec := newPlaceRequest(t, `{"event_id":1,"items":[]}`, 42)
	require.NoError(t, h.Place(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newPlaceRequest(t, `{"items":[{"product_id":7,"quantity":1}]}`, 42)
	require.NoError(t, h.Place(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrderEndpointSaleClosed(t *testing.T) {
	ev := openSaleEvent()
	end := time.Now().UTC().Add(-time.Minute)
	ev.EndsAt = &end
	h := newOrderHandler(ev, &stubLedger{stock: map[uint64]int64{7: 10}, prices: map[uint64]int64{7: 100}})

	c, rec := newPlaceRequest(t, `{"event_id":1,"items":[{"product_id":7,"quantity":1}]}`, 42)
	require.NoError(t, h.Place(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlaceOrderEndpointEventNotFound(t *testing.T) {
	h := newOrderHandler(openSaleEvent(), &stubLedger{stock: map[uint64]int64{}, prices: map[uint64]int64{}})

	c, rec := newPlaceRequest(t, `{"event_id":99,"items":[{"product_id":7,"quantity":1}]}`, 42)
	require.NoError(t, h.Place(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrderEndpointUnknownProduct(t *testing.T) {
	h := newOrderHandler(openSaleEvent(), &stubLedger{stock: map[uint64]int64{7: 10}, prices: map[uint64]int64{7: 100}})

	c, rec := newPlaceRequest(t, `{"event_id":1,"items":[{"product_id":8,"quantity":1}]}`, 42)
	require.NoError(t, h.Place(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrderEndpointInsufficientStock(t *testing.T) {
	h := newOrderHandler(openSaleEvent(), &stubLedger{stock: map[uint64]int64{7: 1}, prices: map[uint64]int64{7: 100}})

	c, rec := newPlaceRequest(t, `{"event_id":1,"items":[{"product_id":7,"quantity":5}]}`, 42)
	require.NoError(t, h.Place(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, float64(1), resp["available"])
	require.Equal(t, float64(5), resp["requested"])
}
