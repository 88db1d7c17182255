package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/entity"
)

type OrderRepository interface {
	BeginTx(ctx context.Context) (Tx, error)
	GetOrderByID(ctx context.Context, id string) (*entity.Order, error)
	GetOrderByPaymentReference(ctx context.Context, paymentReference string) (*entity.Order, error)
	CreateOrder(ctx context.Context, tx Tx, order *entity.Order) error
	UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, trackingNumber string) error
}

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) BeginTx(ctx context.Context) (Tx, error) {
	return beginTx(ctx, r.db)
}

const orderColumns = `id, customer_name, customer_email, customer_phone,
	shipping_address, shipping_city, shipping_country, shipping_postal_code,
	subtotal, shipping_cost, tax_amount, total, discount_amount, promo_code,
	status, payment_method, payment_reference, tracking_number, created_at, updated_at`

func (r *MySQLOrderRepository) GetOrderByID(ctx context.Context, id string) (*entity.Order, error) {
	orderQuery := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	itemQuery := `SELECT id, order_id, product_id, product_variant_id, selected_size, selected_color,
		quantity, unit_price, total_price, created_at FROM order_items WHERE order_id = ? ORDER BY id`

	order, err := scanOrder(r.db.QueryRowContext(ctx, orderQuery, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get order items %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		item := entity.OrderItem{}
		var variantID sql.NullInt64
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &variantID, &item.SelectedSize, &item.SelectedColor,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if variantID.Valid {
			v := variantID.Int64
			item.ProductVariantID = &v
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) GetOrderByPaymentReference(ctx context.Context, paymentReference string) (*entity.Order, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE payment_reference = ?`, paymentReference).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order by payment reference: %w", err)
	}
	return r.GetOrderByID(ctx, id)
}

// CreateOrder writes the header and all items inside tx. Item totals are
// recomputed here regardless of what the caller set.
func (r *MySQLOrderRepository) CreateOrder(ctx context.Context, tx Tx, order *entity.Order) error {
	dbTx := sqlTx(tx)

	orderQuery := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := dbTx.ExecContext(ctx, orderQuery,
		order.ID, order.Customer.Name, order.Customer.Email, order.Customer.Phone,
		order.Shipping.Address, order.Shipping.City, order.Shipping.Country, order.Shipping.PostalCode,
		order.Subtotal, order.ShippingCost, order.Tax, order.Total, order.DiscountAmount, order.PromoCode,
		order.Status, order.PaymentMethod, nullString(order.PaymentReference), order.TrackingNumber,
		order.CreatedAt, order.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return ErrDuplicatePaymentReference
	}
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}

	if len(order.Items) == 0 {
		return nil
	}

	// Insert order items with batch
	itemQuery := `INSERT INTO order_items (order_id, product_id, product_variant_id, selected_size, selected_color,
		quantity, unit_price, total_price, created_at) VALUES `

	placeholders := make([]string, 0, len(order.Items))
	var values []interface{}
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		item.RecomputeTotal()
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		values = append(values, item.OrderID, item.ProductID, nullInt64(item.ProductVariantID),
			item.SelectedSize, item.SelectedColor, item.Quantity, item.UnitPrice, item.TotalPrice, item.CreatedAt)
	}
	itemQuery += strings.Join(placeholders, ", ")

	if _, err := dbTx.ExecContext(ctx, itemQuery, values...); err != nil {
		return fmt.Errorf("insert order items for %s: %w", order.ID, err)
	}
	return nil
}

// UpdateOrderStatus moves an order from one status to another. It fails with
// ErrStatusConflict when the stored status is no longer from.
func (r *MySQLOrderRepository) UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, trackingNumber string) error {
	query := `UPDATE orders SET status = ?, tracking_number = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, to, trackingNumber, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update order status %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status %s: %w", id, err)
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func scanOrder(row *sql.Row) (*entity.Order, error) {
	order := &entity.Order{}
	var paymentReference sql.NullString
	err := row.Scan(
		&order.ID, &order.Customer.Name, &order.Customer.Email, &order.Customer.Phone,
		&order.Shipping.Address, &order.Shipping.City, &order.Shipping.Country, &order.Shipping.PostalCode,
		&order.Subtotal, &order.ShippingCost, &order.Tax, &order.Total, &order.DiscountAmount, &order.PromoCode,
		&order.Status, &order.PaymentMethod, &paymentReference, &order.TrackingNumber,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	order.PaymentReference = paymentReference.String
	return order, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
