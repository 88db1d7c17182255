package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// sampleUSDAmount is the reference amount shown next to the live rate.
var sampleUSDAmount = decimal.NewFromInt(25)

type PaymentHandler struct {
	converter RateConverter
	momo      MobileMoney
}

func NewPaymentHandler(converter RateConverter, momo MobileMoney) *PaymentHandler {
	return &PaymentHandler{converter: converter, momo: momo}
}

// InitiateMobileMoney starts a mobile-money payment --> POST /api/payments/momo/initiate
func (h *PaymentHandler) InitiateMobileMoney(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "payments.InitiateMobileMoney")
	defer span.End()

	req := struct {
		Phone  string          `json:"phone"`
		Amount decimal.Decimal `json:"amount"`
	}{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	txn, err := h.momo.Initiate(ctx, req.Phone, req.Amount)
	if err != nil {
		span.RecordError(err)
		return c.JSON(errorStatus(err), errorBody(err))
	}

	span.SetAttributes(
		attribute.String("payment.reference", txn.Reference),
		attribute.String("rate.source", string(txn.Conversion.RateSource)),
	)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reference":       txn.Reference,
		"status":          txn.Status,
		"phone":           txn.Phone,
		"currency":        txn.Currency,
		"ghs_amount":      txn.MinorUnits,
		"conversion_info": txn.Conversion,
		"message":         "Payment request sent. Approve the prompt on your phone.",
	})
}

// MobileMoneyStatus reports a payment's progress --> GET /api/payments/momo/status/:reference
func (h *PaymentHandler) MobileMoneyStatus(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "payments.MobileMoneyStatus")
	defer span.End()

	reference := c.Param("reference")
	span.SetAttributes(attribute.String("payment.reference", reference))

	txn, err := h.momo.Status(ctx, reference)
	if err != nil {
		return c.JSON(errorStatus(err), errorBody(err))
	}
	return c.JSON(http.StatusOK, txn)
}

// ExchangeRate shows the current USD to GHS rate --> GET /api/payments/exchange-rate
func (h *PaymentHandler) ExchangeRate(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "payments.ExchangeRate")
	defer span.End()

	info := h.converter.RateInfo(ctx)
	sample := h.converter.Convert(ctx, sampleUSDAmount)
	span.SetAttributes(attribute.Bool("rate.fallback", info.IsFallback))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"rate":                   info.Rate,
		"display":                info.Display,
		"is_cached":              info.IsCached,
		"is_fallback":            info.IsFallback,
		"cache_duration_seconds": info.CacheDurationSeconds,
		"sample_conversion": map[string]string{
			"usd_input":  sample.USDDisplay,
			"ghs_output": sample.AmountDisplay,
			"note":       sample.ConversionNote,
		},
	})
}
