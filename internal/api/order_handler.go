package api

import (
	"errors"
	"net/http"

	"checkout-service/internal/entity"
	"checkout-service/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type OrderHandler struct {
	finalizer    OrderFinalizer
	validator    StockValidator
	promos       PromoValidator
	stateMachine OrderTransitioner
}

func NewOrderHandler(finalizer OrderFinalizer, validator StockValidator, promos PromoValidator, stateMachine OrderTransitioner) *OrderHandler {
	return &OrderHandler{
		finalizer:    finalizer,
		validator:    validator,
		promos:       promos,
		stateMachine: stateMachine,
	}
}

// ValidateStock checks a cart without reserving anything --> POST /api/stock/validate
func (h *OrderHandler) ValidateStock(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "orders.ValidateStock")
	defer span.End()

	req := struct {
		Items []entity.CartLine `json:"items"`
	}{}
	if err := c.Bind(&req); err != nil || len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}
	span.SetAttributes(attribute.Int("cart.lines", len(req.Items)))

	result, err := h.validator.Validate(ctx, req.Items)
	if err != nil {
		span.RecordError(err)
		return c.JSON(errorStatus(err), errorBody(err))
	}

	span.SetAttributes(attribute.Bool("stock.valid", result.Valid))
	return c.JSON(http.StatusOK, result)
}

// ValidatePromo previews a promo code --> POST /api/promo/validate
func (h *OrderHandler) ValidatePromo(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "orders.ValidatePromo")
	defer span.End()

	req := struct {
		Code          string          `json:"code"`
		OrderSubtotal decimal.Decimal `json:"order_subtotal"`
	}{}
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	result, err := h.promos.Validate(ctx, req.Code, req.OrderSubtotal)
	if err != nil {
		span.RecordError(err)
		return c.JSON(errorStatus(err), errorBody(err))
	}

	span.SetAttributes(attribute.String("promo.code", result.Code), attribute.Bool("promo.valid", result.Valid))
	return c.JSON(http.StatusOK, result)
}

// FinalizeOrder commits a paid cart --> POST /api/orders/finalize
func (h *OrderHandler) FinalizeOrder(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "orders.Finalize")
	defer span.End()

	req := service.FinalizeRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}
	span.SetAttributes(attribute.String("payment.reference", req.PaymentReference))

	result, err := h.finalizer.Finalize(ctx, &req)
	if err != nil {
		span.RecordError(err)
		var stockErr *service.StockValidationFailedError
		if errors.As(err, &stockErr) {
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"error":        "stock validation failed",
				"stock_errors": stockErr.Errors,
			})
		}
		return c.JSON(errorStatus(err), errorBody(err))
	}

	span.SetAttributes(attribute.String("order.id", result.Order.ID), attribute.String("finalize.status", string(result.Status)))

	code := http.StatusCreated
	if result.Status == service.FinalizeAlreadyExists {
		code = http.StatusOK
	}
	return c.JSON(code, map[string]string{
		"order_id": result.Order.ID,
		"status":   string(result.Status),
	})
}

// GetOrder returns an order with its items --> GET /api/orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "orders.GetOrder")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order.id", id))

	order, err := h.finalizer.GetOrder(ctx, id)
	if err != nil {
		return c.JSON(errorStatus(err), errorBody(err))
	}
	return c.JSON(http.StatusOK, order)
}

type statusUpdateRequest struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

// UpdateStatus moves an order to a new status --> PUT /api/orders/:id/status
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	req := statusUpdateRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}
	req.OrderID = c.Param("id")
	return h.transition(c, "orders.UpdateStatus", req)
}

// ShippingWebhook applies a carrier status update --> POST /api/shipping/webhook
func (h *OrderHandler) ShippingWebhook(c echo.Context) error {
	req := statusUpdateRequest{}
	if err := c.Bind(&req); err != nil || req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}
	return h.transition(c, "shipping.Webhook", req)
}

func (h *OrderHandler) transition(c echo.Context, spanName string, req statusUpdateRequest) error {
	ctx, span := tracer.Start(c.Request().Context(), spanName)
	defer span.End()
	span.SetAttributes(attribute.String("order.id", req.OrderID), attribute.String("order.status", req.Status))

	next, err := entity.ParseOrderStatus(req.Status)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	order, err := h.stateMachine.Transition(ctx, req.OrderID, next, service.TransitionOptions{
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
	})
	if err != nil {
		span.RecordError(err)
		return c.JSON(errorStatus(err), errorBody(err))
	}
	return c.JSON(http.StatusOK, order)
}
