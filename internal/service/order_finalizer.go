package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/entity"
	"checkout-service/internal/notify"
	"checkout-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type FinalizeStatus string

const (
	FinalizeCreated       FinalizeStatus = "created"
	FinalizeAlreadyExists FinalizeStatus = "already_exists"
)

type FinalizeItem struct {
	ProductID     string          `json:"product_id"`
	VariantID     *int64          `json:"variant_id,omitempty"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	SelectedColor string          `json:"selected_color,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// FinalizeTotals are the amounts the customer was charged. A nil
// ShippingCost means "compute it from the products".
type FinalizeTotals struct {
	Subtotal     decimal.Decimal  `json:"subtotal"`
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty"`
	Tax          decimal.Decimal  `json:"tax"`
	Total        decimal.Decimal  `json:"total"`
}

type FinalizeRequest struct {
	PaymentReference string              `json:"payment_reference"`
	PaymentMethod    string              `json:"payment_method"`
	Customer         entity.CustomerInfo `json:"customer"`
	Shipping         entity.ShippingInfo `json:"shipping"`
	Totals           FinalizeTotals      `json:"totals"`
	Items            []FinalizeItem      `json:"items"`
	PromoCode        string              `json:"promo_code,omitempty"`
}

type FinalizeResult struct {
	Order  *entity.Order
	Status FinalizeStatus
}

var ErrEmptyOrder = errors.New("order has no items")

// StockValidationFailedError is returned when the cart cannot be fulfilled.
// Nothing has been written when it is returned.
type StockValidationFailedError struct {
	Errors []entity.StockError
}

func (e *StockValidationFailedError) Error() string {
	return fmt.Sprintf("stock validation failed: %d line(s) rejected", len(e.Errors))
}

// OrderFinalizer is the single commit point for paid carts.
type OrderFinalizer struct {
	orderRepo           repository.OrderRepository
	catalog             repository.CatalogRepository
	promoRepo           repository.PromoCodeRepository
	validator           *StockValidator
	promos              *PromoCodeEngine
	notifier            notify.Dispatcher
	defaultShippingCost decimal.Decimal
	finalized           metric.Int64Counter
	notifyFailures      metric.Int64Counter
	now                 func() time.Time
}

func NewOrderFinalizer(
	orderRepo repository.OrderRepository,
	catalog repository.CatalogRepository,
	promoRepo repository.PromoCodeRepository,
	validator *StockValidator,
	promos *PromoCodeEngine,
	notifier notify.Dispatcher,
	defaultShippingCost decimal.Decimal,
) *OrderFinalizer {
	return &OrderFinalizer{
		orderRepo:           orderRepo,
		catalog:             catalog,
		promoRepo:           promoRepo,
		validator:           validator,
		promos:              promos,
		notifier:            notifier,
		defaultShippingCost: defaultShippingCost,
		finalized:           newCounter("orders_finalized_total", "Finalize calls by outcome"),
		notifyFailures:      newCounter("notifications_failed_total", "Notifications that could not be handed off"),
		now:                 time.Now,
	}
}

// Finalize creates the order for a confirmed payment. Calling it again with
// the same payment reference returns the stored order and sends nothing.
func (s *OrderFinalizer) Finalize(ctx context.Context, req *FinalizeRequest) (*FinalizeResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	if existing, err := s.existingOrder(ctx, req.PaymentReference); err != nil {
		return nil, err
	} else if existing != nil {
		logger.Info().Msgf("Order %s already exists for payment %s", existing.ID, req.PaymentReference)
		s.record(ctx, FinalizeAlreadyExists)
		return &FinalizeResult{Order: existing, Status: FinalizeAlreadyExists}, nil
	}

	lines := make([]entity.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, entity.CartLine{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity})
	}
	validation, err := s.validator.Validate(ctx, lines)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		logger.Warn().Msgf("Stock validation failed for payment %s: %d error(s)", req.PaymentReference, len(validation.Errors))
		s.record(ctx, "stock_failed")
		return nil, &StockValidationFailedError{Errors: validation.Errors}
	}

	order, products, err := s.buildOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	created, err := s.commit(ctx, order, products)
	if errors.Is(err, repository.ErrDuplicatePaymentReference) {
		existing, err := s.orderRepo.GetOrderByPaymentReference(ctx, req.PaymentReference)
		if err != nil {
			logger.Error().Err(err).Msgf("Error loading order for payment %s", req.PaymentReference)
			return nil, err
		}
		s.record(ctx, FinalizeAlreadyExists)
		return &FinalizeResult{Order: existing, Status: FinalizeAlreadyExists}, nil
	}
	if err != nil {
		var stockErr *StockValidationFailedError
		if errors.As(err, &stockErr) {
			s.record(ctx, "stock_failed")
		} else {
			s.record(ctx, "error")
		}
		return nil, err
	}

	logger.Info().Msgf("Order %s created for payment %s", created.ID, created.PaymentReference)
	s.record(ctx, FinalizeCreated)

	s.send(ctx, entity.NotificationAdminAlert, created, nil)
	if created.Customer.Email != "" {
		s.send(ctx, entity.NotificationOrderConfirmation, created, nil)
	}

	return &FinalizeResult{Order: created, Status: FinalizeCreated}, nil
}

// GetOrder returns an order with its items.
func (s *OrderFinalizer) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Error().Err(err).Msgf("Error getting order by ID %s", id)
	}
	return order, err
}

func (s *OrderFinalizer) existingOrder(ctx context.Context, paymentReference string) (*entity.Order, error) {
	if paymentReference == "" {
		return nil, nil
	}
	order, err := s.orderRepo.GetOrderByPaymentReference(ctx, paymentReference)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error checking order for payment %s", paymentReference)
		return nil, err
	}
	return order, nil
}

// buildOrder assembles the order header and item snapshots. The products it
// loaded are returned for the decrement step.
func (s *OrderFinalizer) buildOrder(ctx context.Context, req *FinalizeRequest) (*entity.Order, map[string]*entity.Product, error) {
	now := s.now().UTC()
	order := &entity.Order{
		ID:               newOrderID(),
		Customer:         req.Customer,
		Shipping:         req.Shipping,
		Subtotal:         req.Totals.Subtotal,
		Tax:              req.Totals.Tax,
		DiscountAmount:   decimal.Zero,
		Status:           entity.OrderStatusProcessing,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	products := make(map[string]*entity.Product)
	computedShipping := decimal.Zero
	itemsSubtotal := decimal.Zero
	for _, line := range req.Items {
		product, ok := products[line.ProductID]
		if !ok {
			var err error
			product, err = s.catalog.GetProduct(ctx, line.ProductID)
			if err != nil {
				logger.Error().Err(err).Msgf("Error getting product %s", line.ProductID)
				return nil, nil, err
			}
			products[line.ProductID] = product
		}

		shippingCost := s.defaultShippingCost
		if product.ShippingCost.Valid {
			shippingCost = product.ShippingCost.Decimal
		}
		computedShipping = computedShipping.Add(shippingCost.Mul(decimal.NewFromInt(int64(line.Quantity))))

		item := entity.OrderItem{
			ProductID:        line.ProductID,
			ProductVariantID: line.VariantID,
			SelectedSize:     line.SelectedSize,
			SelectedColor:    line.SelectedColor,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			CreatedAt:        now,
		}
		listPrice := product.Price
		if line.VariantID != nil {
			variant, err := s.catalog.GetVariant(ctx, line.ProductID, *line.VariantID)
			if err != nil {
				logger.Error().Err(err).Msgf("Error getting variant %d", *line.VariantID)
				return nil, nil, err
			}
			item.SelectedSize = variant.SizeName
			item.SelectedColor = variant.ColorName
			listPrice = variant.FinalPrice(product)
		}
		if item.UnitPrice.IsZero() {
			item.UnitPrice = listPrice
		}
		item.RecomputeTotal()
		itemsSubtotal = itemsSubtotal.Add(item.TotalPrice)
		order.Items = append(order.Items, item)
	}

	if order.Subtotal.IsZero() {
		order.Subtotal = itemsSubtotal
	} else if !order.Subtotal.Equal(itemsSubtotal) {
		logger.Warn().Msgf("Order subtotal %s differs from item sum %s for payment %s",
			order.Subtotal, itemsSubtotal, req.PaymentReference)
	}

	order.ShippingCost = computedShipping
	if req.Totals.ShippingCost != nil {
		order.ShippingCost = *req.Totals.ShippingCost
	}

	if req.PromoCode != "" {
		validation, err := s.promos.Validate(ctx, req.PromoCode, order.Subtotal)
		if err != nil {
			return nil, nil, err
		}
		if validation.Valid {
			order.PromoCode = validation.Code
			order.DiscountAmount = validation.DiscountAmount
			if validation.FreeShipping && req.Totals.ShippingCost == nil {
				order.ShippingCost = decimal.Zero
			}
		} else {
			logger.Warn().Msgf("Promo code %s not applied to payment %s: %s", req.PromoCode, req.PaymentReference, validation.Message)
		}
	}

	order.Total = order.Subtotal.Add(order.ShippingCost).Add(order.Tax).Sub(order.DiscountAmount)
	if !req.Totals.Total.IsZero() && !req.Totals.Total.Equal(order.Total) {
		logger.Warn().Msgf("Order total %s differs from charged total %s for payment %s",
			order.Total, req.Totals.Total, req.PaymentReference)
	}

	return order, products, nil
}

// commit writes the order, its items, the stock decrements and the promo
// usage in one unit of work.
func (s *OrderFinalizer) commit(ctx context.Context, order *entity.Order, products map[string]*entity.Product) (*entity.Order, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error starting transaction")
		return nil, err
	}

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		rollback(tx, order.ID)
		if !errors.Is(err, repository.ErrDuplicatePaymentReference) {
			logger.Error().Err(err).Msgf("Error creating order %s", order.ID)
		}
		return nil, err
	}

	var stockErrors []entity.StockError
	for _, item := range order.Items {
		var ok bool
		if item.ProductVariantID != nil {
			ok, err = s.catalog.DecrementVariantStock(ctx, tx, *item.ProductVariantID, item.Quantity)
		} else {
			ok, err = s.catalog.DecrementProductStock(ctx, tx, item.ProductID, item.Quantity)
		}
		if err != nil {
			rollback(tx, order.ID)
			logger.Error().Err(err).Msgf("Error decrementing stock for product %s", item.ProductID)
			return nil, err
		}
		if !ok {
			stockErrors = append(stockErrors, entity.StockError{
				ProductID: item.ProductID,
				VariantID: item.ProductVariantID,
				Error:     fmt.Sprintf("%s is no longer in stock in the requested quantity", products[item.ProductID].Title),
			})
		}
	}
	if len(stockErrors) > 0 {
		rollback(tx, order.ID)
		logger.Warn().Msgf("Stock taken by a concurrent checkout, order %s not created", order.ID)
		return nil, &StockValidationFailedError{Errors: stockErrors}
	}

	if order.PromoCode != "" {
		ok, err := s.promoRepo.IncrementUsage(ctx, tx, order.PromoCode)
		if err != nil {
			rollback(tx, order.ID)
			logger.Error().Err(err).Msgf("Error incrementing usage of promo code %s", order.PromoCode)
			return nil, err
		}
		if !ok {
			logger.Warn().Msgf("Promo code %s reached its usage limit while order %s was committing", order.PromoCode, order.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error().Err(err).Msgf("Error committing order %s", order.ID)
		return nil, err
	}
	return order, nil
}

func (s *OrderFinalizer) send(ctx context.Context, kind entity.NotificationKind, order *entity.Order, payload map[string]interface{}) {
	sendNotification(ctx, s.notifier, s.notifyFailures, kind, order, payload)
}

func (s *OrderFinalizer) record(ctx context.Context, outcome FinalizeStatus) {
	s.finalized.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

// sendNotification hands a notification off and swallows any failure.
func sendNotification(ctx context.Context, notifier notify.Dispatcher, failures metric.Int64Counter,
	kind entity.NotificationKind, order *entity.Order, payload map[string]interface{}) {
	if err := notifier.Send(ctx, kind, order, payload); err != nil {
		logger.Error().Err(err).Msgf("Error sending %s notification for order %s", kind, order.ID)
		failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	}
}

func rollback(tx repository.Tx, orderID string) {
	if err := tx.Rollback(); err != nil {
		logger.Error().Err(err).Msgf("Error rolling back order %s", orderID)
	}
}

// newOrderID returns "ORD" followed by eight upper-case hex characters.
func newOrderID() string {
	return "ORD" + strings.ToUpper(uuid.NewString()[:8])
}
