package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("  Shipped ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, status)

	_, err = ParseOrderStatus("refunded")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestOrderItemRecomputeTotal(t *testing.T) {
	item := OrderItem{Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")}
	item.RecomputeTotal()
	assert.True(t, decimal.RequireFromString("59.97").Equal(item.TotalPrice))
}

func TestVariantPricingAndStock(t *testing.T) {
	product := &Product{Price: decimal.RequireFromString("40.00")}
	variant := &ProductVariant{PriceAdjustment: decimal.RequireFromString("-5.50"), StockQuantity: 2, IsAvailable: true}

	assert.True(t, decimal.RequireFromString("34.50").Equal(variant.FinalPrice(product)))
	assert.True(t, variant.InStock())

	variant.IsAvailable = false
	assert.False(t, variant.InStock())

	assert.False(t, product.InStock(false))
	assert.True(t, product.InStock(true))
}

func TestPromoUsageExhausted(t *testing.T) {
	limit := 2
	promo := &PromoCode{UsageLimit: &limit, UsageCount: 1}
	assert.False(t, promo.UsageExhausted())

	promo.UsageCount = 2
	assert.True(t, promo.UsageExhausted())

	promo.UsageLimit = nil
	assert.False(t, promo.UsageExhausted())
}
