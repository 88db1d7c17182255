package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/entity"
)

// CatalogRepository reads products and variants and performs the only
// catalog write this service owns: the conditional stock decrement.
type CatalogRepository interface {
	GetProduct(ctx context.Context, productID string) (*entity.Product, error)
	GetVariant(ctx context.Context, productID string, variantID int64) (*entity.ProductVariant, error)
	HasAvailableVariantStock(ctx context.Context, productID string) (bool, error)
	DecrementProductStock(ctx context.Context, tx Tx, productID string, quantity int) (bool, error)
	DecrementVariantStock(ctx context.Context, tx Tx, variantID int64, quantity int) (bool, error)
}

type MySQLCatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &MySQLCatalogRepository{db: db}
}

func (r *MySQLCatalogRepository) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	query := `SELECT id, title, price, shipping_cost, stock_quantity, is_active FROM products WHERE id = ?`

	product := &entity.Product{}
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&product.ID, &product.Title, &product.Price, &product.ShippingCost, &product.StockQuantity, &product.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	return product, nil
}

func (r *MySQLCatalogRepository) GetVariant(ctx context.Context, productID string, variantID int64) (*entity.ProductVariant, error) {
	query := `SELECT id, product_id, size_name, color_name, stock_quantity, price_adjustment, is_available
		FROM product_variants WHERE id = ? AND product_id = ?`

	variant := &entity.ProductVariant{}
	err := r.db.QueryRowContext(ctx, query, variantID, productID).Scan(
		&variant.ID, &variant.ProductID, &variant.SizeName, &variant.ColorName,
		&variant.StockQuantity, &variant.PriceAdjustment, &variant.IsAvailable,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variant %d: %w", variantID, err)
	}
	return variant, nil
}

func (r *MySQLCatalogRepository) HasAvailableVariantStock(ctx context.Context, productID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM product_variants WHERE product_id = ? AND stock_quantity > 0 AND is_available = TRUE)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check variant stock for %s: %w", productID, err)
	}
	return exists, nil
}

// DecrementProductStock takes quantity units from the main pool only if that
// many are left. It returns false when no row qualified.
func (r *MySQLCatalogRepository) DecrementProductStock(ctx context.Context, tx Tx, productID string, quantity int) (bool, error) {
	query := `UPDATE products SET stock_quantity = stock_quantity - ? WHERE id = ? AND stock_quantity >= ?`
	return decrement(ctx, tx, query, quantity, productID)
}

// DecrementVariantStock is DecrementProductStock for a variant's own pool.
func (r *MySQLCatalogRepository) DecrementVariantStock(ctx context.Context, tx Tx, variantID int64, quantity int) (bool, error) {
	query := `UPDATE product_variants SET stock_quantity = stock_quantity - ? WHERE id = ? AND stock_quantity >= ?`
	return decrement(ctx, tx, query, quantity, variantID)
}

func decrement(ctx context.Context, tx Tx, query string, quantity int, id interface{}) (bool, error) {
	res, err := sqlTx(tx).ExecContext(ctx, query, quantity, id, quantity)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return affected == 1, nil
}
