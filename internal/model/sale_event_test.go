package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscountedPricePercentage(t *testing.T) {
	require.Equal(t, int64(8000), DiscountedPrice(10000, DiscountPercentage, 20))
	require.Equal(t, int64(10000), DiscountedPrice(10000, DiscountPercentage, 0))
	require.Equal(t, int64(0), DiscountedPrice(10000, DiscountPercentage, 100))
	// Integer math truncates toward the customer's favor on the discount.
	require.Equal(t, int64(67), DiscountedPrice(99, DiscountPercentage, 33))
}

func TestDiscountedPriceFixed(t *testing.T) {
	require.Equal(t, int64(7500), DiscountedPrice(10000, DiscountFixed, 2500))
	require.Equal(t, int64(0), DiscountedPrice(10000, DiscountFixed, 10000))
}

func TestDiscountedPriceClampsAtZero(t *testing.T) {
	require.Equal(t, int64(0), DiscountedPrice(500, DiscountFixed, 600))
}

func TestDiscountedPriceUnknownTypeKeepsBase(t *testing.T) {
	require.Equal(t, int64(500), DiscountedPrice(500, "BOGOF", 50))
}

func TestSaleEventEntry(t *testing.T) {
	ev := SaleEvent{Stock: []SaleStockEntry{
		{ProductID: 3, PriceCents: 100, StockCount: 10},
		{ProductID: 7, PriceCents: 200, StockCount: 5},
	}}
	e := ev.Entry(7)
	require.NotNil(t, e)
	require.Equal(t, int64(200), e.PriceCents)
	require.Nil(t, ev.Entry(99))
}

func TestOrderTotal(t *testing.T) {
	o := Order{Items: []OrderItem{
		{Quantity: 2, PriceCents: 1500},
		{Quantity: 1, PriceCents: 700},
	}}
	require.Equal(t, int64(3700), o.Total())
}
