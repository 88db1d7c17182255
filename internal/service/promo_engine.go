package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/entity"
	"checkout-service/internal/repository"

	"github.com/shopspring/decimal"
)

// discountRule computes the discount for one discount kind.
type discountRule interface {
	apply(promo *entity.PromoCode, subtotal decimal.Decimal) (amount decimal.Decimal, freeShipping bool)
}

type percentageDiscount struct{}

func (percentageDiscount) apply(promo *entity.PromoCode, subtotal decimal.Decimal) (decimal.Decimal, bool) {
	amount := subtotal.Mul(promo.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	if promo.MaximumDiscountAmount != nil && amount.GreaterThan(*promo.MaximumDiscountAmount) {
		amount = *promo.MaximumDiscountAmount
	}
	return amount, false
}

type fixedDiscount struct{}

func (fixedDiscount) apply(promo *entity.PromoCode, subtotal decimal.Decimal) (decimal.Decimal, bool) {
	return decimal.Min(promo.DiscountValue, subtotal), false
}

type freeShippingDiscount struct{}

func (freeShippingDiscount) apply(*entity.PromoCode, decimal.Decimal) (decimal.Decimal, bool) {
	return decimal.Zero, true
}

var discountRules = map[entity.DiscountType]discountRule{
	entity.DiscountPercentage:   percentageDiscount{},
	entity.DiscountFixed:        fixedDiscount{},
	entity.DiscountFreeShipping: freeShippingDiscount{},
}

// PromoCodeEngine answers what a code would do to a subtotal. It never
// changes the code's usage counter.
type PromoCodeEngine struct {
	promoRepo repository.PromoCodeRepository
	now       func() time.Time
}

func NewPromoCodeEngine(promoRepo repository.PromoCodeRepository) *PromoCodeEngine {
	return &PromoCodeEngine{promoRepo: promoRepo, now: time.Now}
}

// Validate looks the code up and evaluates it at the current time.
func (e *PromoCodeEngine) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*entity.PromoValidation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	promo, err := e.promoRepo.GetPromoCodeByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return invalidPromo(code, "Invalid promo code"), nil
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting promo code %s", code)
		return nil, err
	}

	return Evaluate(promo, subtotal, e.now()), nil
}

// Evaluate applies the checks in order and stops at the first failure. An
// expired code reads as expired even when it has also been deactivated, and a
// deactivated code reads as such before its start date is considered.
func Evaluate(promo *entity.PromoCode, subtotal decimal.Decimal, now time.Time) *entity.PromoValidation {
	switch {
	case now.After(promo.ValidUntil):
		return invalidPromo(promo.Code, "Promo code has expired")
	case !promo.IsActive:
		return invalidPromo(promo.Code, "Promo code is no longer active")
	case now.Before(promo.ValidFrom):
		return invalidPromo(promo.Code, "Promo code is not yet active")
	case promo.UsageExhausted():
		return invalidPromo(promo.Code, "Promo code usage limit has been reached")
	case subtotal.LessThan(promo.MinimumOrderAmount):
		return invalidPromo(promo.Code, fmt.Sprintf("Minimum order amount of $%s required", promo.MinimumOrderAmount.StringFixed(2)))
	}

	rule, ok := discountRules[promo.DiscountType]
	if !ok {
		logger.Warn().Msgf("Promo code %s has unknown discount type %q", promo.Code, promo.DiscountType)
		return invalidPromo(promo.Code, "Invalid promo code")
	}

	amount, freeShipping := rule.apply(promo, subtotal)
	return &entity.PromoValidation{
		Valid:          true,
		Code:           promo.Code,
		DiscountType:   promo.DiscountType,
		DiscountAmount: amount,
		FreeShipping:   freeShipping,
		Message:        appliedMessage(promo, amount),
	}
}

func appliedMessage(promo *entity.PromoCode, amount decimal.Decimal) string {
	if promo.DiscountType == entity.DiscountFreeShipping {
		return "Free shipping applied"
	}
	return fmt.Sprintf("Promo code applied: $%s off", amount.StringFixed(2))
}

func invalidPromo(code, message string) *entity.PromoValidation {
	return &entity.PromoValidation{
		Valid:          false,
		Code:           code,
		DiscountAmount: decimal.Zero,
		Message:        message,
	}
}
