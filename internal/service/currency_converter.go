package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/entity"
	"checkout-service/internal/ratesource"
	"checkout-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	BaseCurrency = "USD"
	RailCurrency = "GHS"
)

// CurrencyConverter resolves the USD to GHS rate for the mobile-money rail.
// None of its methods fail: every problem ends in the fallback rate.
type CurrencyConverter struct {
	cache    repository.RateCache
	sources  []ratesource.Source
	ttl      time.Duration
	fallback decimal.Decimal
	lookups  metric.Int64Counter
	now      func() time.Time
}

func NewCurrencyConverter(cache repository.RateCache, sources []ratesource.Source, ttl time.Duration, fallback decimal.Decimal) *CurrencyConverter {
	return &CurrencyConverter{
		cache:    cache,
		sources:  sources,
		ttl:      ttl,
		fallback: fallback,
		lookups:  newCounter("currency_rate_lookups_total", "Exchange rate lookups by source"),
		now:      time.Now,
	}
}

// Rate returns the cached rate, else the first live source that answers,
// else the fallback constant. Whatever is resolved is written back to cache.
func (c *CurrencyConverter) Rate(ctx context.Context) entity.RateQuote {
	quote := c.resolve(ctx)
	c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(quote.Source))))
	return quote
}

func (c *CurrencyConverter) resolve(ctx context.Context) entity.RateQuote {
	quote := entity.RateQuote{Base: BaseCurrency, Quote: RailCurrency}

	cached, err := c.cache.GetRate(ctx, BaseCurrency, RailCurrency)
	switch {
	case err == nil:
		quote.Rate = cached.Rate
		quote.Source = entity.RateSourceCached
		quote.IsFallback = cached.IsFallback
		return quote
	case !errors.Is(err, repository.ErrNotFound):
		logger.Warn().Err(err).Msg("Error reading cached exchange rate")
	}

	quote.Rate, quote.Source = c.fallback, entity.RateSourceFallback
	quote.IsFallback = true
	for _, source := range c.sources {
		rate, err := source.FetchRate(ctx, BaseCurrency, RailCurrency)
		if err != nil {
			logger.Warn().Err(err).Str("source", source.Name()).Msg("Exchange rate source failed")
			continue
		}
		logger.Info().Str("source", source.Name()).Msgf("%s to %s rate: %s", BaseCurrency, RailCurrency, rate)
		quote.Rate, quote.Source = rate, entity.RateSourceLive
		quote.IsFallback = false
		break
	}
	if quote.IsFallback {
		logger.Warn().Msgf("All exchange rate sources failed, using fallback rate %s", c.fallback)
	}

	err = c.cache.SetRate(ctx, BaseCurrency, RailCurrency, repository.CachedRate{
		Rate:       quote.Rate,
		IsFallback: quote.IsFallback,
		StoredAt:   c.now().UTC(),
	}, c.ttl)
	if err != nil {
		logger.Warn().Err(err).Msg("Error caching exchange rate")
	}
	return quote
}

// Convert prices a USD amount on the GHS rail. MinorUnits is what gets
// charged; the display strings are derived from it.
func (c *CurrencyConverter) Convert(ctx context.Context, usd decimal.Decimal) entity.Conversion {
	quote := c.Rate(ctx)

	minor := usd.Mul(quote.Rate).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	amount := decimal.New(minor, -2)

	return entity.Conversion{
		MinorUnits:     minor,
		Amount:         amount,
		AmountDisplay:  fmt.Sprintf("GH₵ %s", amount.StringFixed(2)),
		USDDisplay:     fmt.Sprintf("$%s", usd.StringFixed(2)),
		ExchangeRate:   quote.Rate,
		RateSource:     quote.Source,
		ConversionNote: rateDisplay(quote.Rate),
	}
}

// RateInfo describes the current rate for display.
func (c *CurrencyConverter) RateInfo(ctx context.Context) entity.RateInfo {
	quote := c.Rate(ctx)
	return entity.RateInfo{
		Rate:                 quote.Rate,
		Display:              rateDisplay(quote.Rate),
		IsCached:             quote.Source == entity.RateSourceCached,
		IsFallback:           quote.IsFallback,
		CacheDurationSeconds: int64(c.ttl / time.Second),
	}
}

func rateDisplay(rate decimal.Decimal) string {
	return fmt.Sprintf("1 %s = %s %s", BaseCurrency, rate.StringFixed(4), RailCurrency)
}
