package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/entity"

	"github.com/shopspring/decimal"
)

type PromoCodeRepository interface {
	GetPromoCodeByCode(ctx context.Context, code string) (*entity.PromoCode, error)
	IncrementUsage(ctx context.Context, tx Tx, code string) (bool, error)
}

type MySQLPromoCodeRepository struct {
	db *sql.DB
}

func NewPromoCodeRepository(db *sql.DB) PromoCodeRepository {
	return &MySQLPromoCodeRepository{db: db}
}

func (r *MySQLPromoCodeRepository) GetPromoCodeByCode(ctx context.Context, code string) (*entity.PromoCode, error) {
	query := `SELECT id, code, description, discount_type, discount_value, minimum_order_amount,
		maximum_discount_amount, usage_limit, usage_count, valid_from, valid_until, is_active
		FROM promo_codes WHERE code = ?`

	promo := &entity.PromoCode{}
	var maxDiscount decimal.NullDecimal
	var usageLimit sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&promo.ID, &promo.Code, &promo.Description, &promo.DiscountType, &promo.DiscountValue,
		&promo.MinimumOrderAmount, &maxDiscount, &usageLimit, &promo.UsageCount,
		&promo.ValidFrom, &promo.ValidUntil, &promo.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get promo code %s: %w", code, err)
	}
	if maxDiscount.Valid {
		d := maxDiscount.Decimal
		promo.MaximumDiscountAmount = &d
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		promo.UsageLimit = &limit
	}
	return promo, nil
}

// IncrementUsage bumps usage_count inside tx unless the limit has been
// reached in the meantime.
func (r *MySQLPromoCodeRepository) IncrementUsage(ctx context.Context, tx Tx, code string) (bool, error) {
	query := `UPDATE promo_codes SET usage_count = usage_count + 1
		WHERE code = ? AND (usage_limit IS NULL OR usage_count < usage_limit)`
	res, err := sqlTx(tx).ExecContext(ctx, query, code)
	if err != nil {
		return false, fmt.Errorf("increment promo usage %s: %w", code, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment promo usage %s: %w", code, err)
	}
	return affected == 1, nil
}
