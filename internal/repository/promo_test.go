package repository

import (
	"context"
	"testing"
	"time"

	"checkout-service/internal/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoCodeRepository_GetPromoCodeByCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPromoCodeRepository(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM promo_codes WHERE code = \?`).
		WithArgs("ENNC10").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "description", "discount_type", "discount_value", "minimum_order_amount",
			"maximum_discount_amount", "usage_limit", "usage_count", "valid_from", "valid_until", "is_active",
		}).AddRow(int64(1), "ENNC10", "10% off your entire order", "percentage", "10.00", "0.00",
			"50.00", nil, 4, from, from.AddDate(1, 0, 0), true))

	promo, err := repo.GetPromoCodeByCode(context.Background(), "ENNC10")

	require.NoError(t, err)
	assert.Equal(t, entity.DiscountPercentage, promo.DiscountType)
	require.NotNil(t, promo.MaximumDiscountAmount)
	assert.Equal(t, "50", promo.MaximumDiscountAmount.String())
	assert.Nil(t, promo.UsageLimit)
	assert.Equal(t, 4, promo.UsageCount)
}

func TestPromoCodeRepository_IncrementUsage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPromoCodeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE promo_codes SET usage_count = usage_count \+ 1`).
		WithArgs("WELCOME20").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := beginTx(context.Background(), db)
	require.NoError(t, err)

	ok, err := repo.IncrementUsage(context.Background(), tx, "WELCOME20")

	require.NoError(t, err)
	assert.False(t, ok, "limit reached between validation and commit")
}
