package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flash-sale-backend/internal/model"
)

const minStock = 200

func validEventReq() saleEventReq {
	starts := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	return saleEventReq{
		Title:         "Spring Flash Sale",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 25,
		StartsAt:      starts,
		Stock:         []stockEntryReq{{ProductID: 1, StockCount: 200}},
	}
}

func TestSaleEventReqValidateOK(t *testing.T) {
	req := validEventReq()
	require.Empty(t, req.validate(minStock))
	require.Equal(t, model.ScheduleOneOff, req.Schedule, "schedule defaults to one-off")
}

func TestSaleEventReqValidateTitle(t *testing.T) {
	req := validEventReq()
	req.Title = "   "
	require.Equal(t, "title required", req.validate(minStock))
}

func TestSaleEventReqValidateDiscount(t *testing.T) {
	req := validEventReq()
	req.DiscountType = "HALF_OFF"
	require.Contains(t, req.validate(minStock), "discount_type")

	req = validEventReq()
	req.DiscountValue = 150
	require.Contains(t, req.validate(minStock), "between 0 and 100")

	req = validEventReq()
	req.DiscountType = model.DiscountFixed
	req.DiscountValue = -5
	require.Contains(t, req.validate(minStock), "not be negative")
}

func TestSaleEventReqValidateWindow(t *testing.T) {
	req := validEventReq()
	ends := req.StartsAt.Add(-time.Hour)
	req.EndsAt = &ends
	require.Contains(t, req.validate(minStock), "ends_at")
}

func TestSaleEventReqValidateRecurring(t *testing.T) {
	req := validEventReq()
	req.Schedule = model.ScheduleRecurring
	require.Contains(t, req.validate(minStock), "next_starts_at")

	next := req.StartsAt.Add(24 * time.Hour)
	req.NextStartsAt = &next
	require.Empty(t, req.validate(minStock))

	// One-off events must not carry a next occurrence.
	req = validEventReq()
	req.NextStartsAt = &next
	require.Contains(t, req.validate(minStock), "only valid for recurring")
}

func TestSaleEventReqValidateStock(t *testing.T) {
	req := validEventReq()
	req.Stock = nil
	require.Contains(t, req.validate(minStock), "at least one stock entry")

	req = validEventReq()
	req.Stock = []stockEntryReq{{ProductID: 1, StockCount: 199}}
	require.Contains(t, req.validate(minStock), "minimum of 200")

	req = validEventReq()
	req.Stock = []stockEntryReq{
		{ProductID: 1, StockCount: 200},
		{ProductID: 1, StockCount: 300},
	}
	require.Contains(t, req.validate(minStock), "duplicate product")
}
