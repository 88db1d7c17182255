package api

import (
	"context"
	"errors"
	"net/http"

	"checkout-service/internal/entity"
	"checkout-service/internal/repository"
	"checkout-service/internal/service"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("checkout-service/internal/api")

type OrderFinalizer interface {
	Finalize(ctx context.Context, req *service.FinalizeRequest) (*service.FinalizeResult, error)
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
}

type StockValidator interface {
	Validate(ctx context.Context, lines []entity.CartLine) (*entity.StockValidationResult, error)
}

type PromoValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*entity.PromoValidation, error)
}

type OrderTransitioner interface {
	Transition(ctx context.Context, orderID string, next entity.OrderStatus, opts service.TransitionOptions) (*entity.Order, error)
}

type RateConverter interface {
	Convert(ctx context.Context, usd decimal.Decimal) entity.Conversion
	RateInfo(ctx context.Context) entity.RateInfo
}

type MobileMoney interface {
	Initiate(ctx context.Context, phone string, usdAmount decimal.Decimal) (*entity.MobileMoneyTransaction, error)
	Status(ctx context.Context, reference string) (*entity.MobileMoneyTransaction, error)
}

// errorStatus maps service and repository errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, repository.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrInvalidOrderStatus), errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidPhone), errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
