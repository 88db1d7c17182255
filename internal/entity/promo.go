package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixed        DiscountType = "fixed"
	DiscountFreeShipping DiscountType = "free_shipping"
)

type PromoCode struct {
	ID                    int64            `json:"id"`
	Code                  string           `json:"code"`
	Description           string           `json:"description"`
	DiscountType          DiscountType     `json:"discount_type"`
	DiscountValue         decimal.Decimal  `json:"discount_value"`
	MinimumOrderAmount    decimal.Decimal  `json:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty"`
	UsageLimit            *int             `json:"usage_limit,omitempty"`
	UsageCount            int              `json:"usage_count"`
	ValidFrom             time.Time        `json:"valid_from"`
	ValidUntil            time.Time        `json:"valid_until"`
	IsActive              bool             `json:"is_active"`
}

// UsageExhausted is true once a limited code has been used up.
func (p *PromoCode) UsageExhausted() bool {
	return p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit
}

// PromoValidation is the read-only answer to "what would this code do to
// this subtotal".
type PromoValidation struct {
	Valid          bool            `json:"valid"`
	Code           string          `json:"code"`
	DiscountType   DiscountType    `json:"discount_type,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FreeShipping   bool            `json:"free_shipping"`
	Message        string          `json:"message"`
}
