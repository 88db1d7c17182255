package entity

import "github.com/shopspring/decimal"

type RateSource string

const (
	RateSourceCached   RateSource = "cached"
	RateSourceLive     RateSource = "live"
	RateSourceFallback RateSource = "fallback"
)

// RateQuote is a resolved exchange rate together with where it came from.
// IsFallback stays true for a cached copy of the fallback constant.
type RateQuote struct {
	Base       string          `json:"base"`
	Quote      string          `json:"quote"`
	Rate       decimal.Decimal `json:"rate"`
	Source     RateSource      `json:"source"`
	IsFallback bool            `json:"is_fallback"`
}

// Conversion is the amount actually charged on the secondary rail plus the
// strings shown to the customer.
type Conversion struct {
	MinorUnits     int64           `json:"minor_units"`
	Amount         decimal.Decimal `json:"amount"`
	AmountDisplay  string          `json:"amount_display"`
	USDDisplay     string          `json:"usd_display"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	RateSource     RateSource      `json:"rate_source"`
	ConversionNote string          `json:"conversion_note"`
}

// RateInfo is the display form of the current rate.
type RateInfo struct {
	Rate                 decimal.Decimal `json:"rate"`
	Display              string          `json:"display"`
	IsCached             bool            `json:"is_cached"`
	IsFallback           bool            `json:"is_fallback"`
	CacheDurationSeconds int64           `json:"cache_duration_seconds"`
}
