package service

import (
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

var meter = otel.Meter("checkout-service/internal/service")

func newCounter(name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		logger.Warn().Err(err).Msgf("Error creating counter %s", name)
		counter, _ = noop.NewMeterProvider().Meter("").Int64Counter(name)
	}
	return counter
}
