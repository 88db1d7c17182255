// Package ratesource fetches live exchange rates from public providers.
package ratesource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

var ErrUnavailable = errors.New("rate source unavailable")

// Source is one upstream provider. FetchRate returns ErrUnavailable (possibly
// wrapped) for anything other than a positive rate.
type Source interface {
	Name() string
	FetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

const (
	ExchangeRateAPIURL = "https://api.exchangerate-api.com"
	FixerURL           = "http://data.fixer.io"
	CurrencyAPIURL     = "https://api.currencyapi.com"
)

// Defaults returns the providers in priority order. Keyed providers are
// included even without a key and report themselves unavailable.
func Defaults(fixerKey, currencyAPIKey string, timeout time.Duration) []Source {
	return []Source{
		NewExchangeRateAPI(ExchangeRateAPIURL, timeout),
		NewFixer(FixerURL, fixerKey, timeout),
		NewCurrencyAPI(CurrencyAPIURL, currencyAPIKey, timeout),
	}
}

func newClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

func checkResponse(name string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %v: %w", name, err, ErrUnavailable)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%s: status %d: %w", name, resp.StatusCode(), ErrUnavailable)
	}
	return nil
}

func positive(name, quote string, rate decimal.Decimal, ok bool) (decimal.Decimal, error) {
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: no %s rate in response: %w", name, quote, ErrUnavailable)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: non-positive rate %s: %w", name, rate, ErrUnavailable)
	}
	return rate, nil
}

// ExchangeRateAPI is the keyless exchangerate-api.com v4 endpoint.
type ExchangeRateAPI struct {
	client *resty.Client
}

func NewExchangeRateAPI(baseURL string, timeout time.Duration) *ExchangeRateAPI {
	return &ExchangeRateAPI{client: newClient(baseURL, timeout)}
}

func (s *ExchangeRateAPI) Name() string { return "exchangerate-api" }

func (s *ExchangeRateAPI) FetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	var body struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("base", base).
		Get("/v4/latest/{base}")
	if err := checkResponse(s.Name(), resp, err); err != nil {
		return decimal.Zero, err
	}

	rate, ok := body.Rates[quote]
	return positive(s.Name(), quote, rate, ok)
}

// Fixer is data.fixer.io. It needs an access key.
type Fixer struct {
	client *resty.Client
	apiKey string
}

func NewFixer(baseURL, apiKey string, timeout time.Duration) *Fixer {
	return &Fixer{client: newClient(baseURL, timeout), apiKey: apiKey}
}

func (s *Fixer) Name() string { return "fixer" }

func (s *Fixer) FetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	if s.apiKey == "" {
		return decimal.Zero, fmt.Errorf("%s: no api key: %w", s.Name(), ErrUnavailable)
	}

	var body struct {
		Success bool                       `json:"success"`
		Rates   map[string]decimal.Decimal `json:"rates"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParams(map[string]string{
			"access_key": s.apiKey,
			"base":       base,
			"symbols":    quote,
		}).
		Get("/api/latest")
	if err := checkResponse(s.Name(), resp, err); err != nil {
		return decimal.Zero, err
	}
	if !body.Success {
		return decimal.Zero, fmt.Errorf("%s: request rejected: %w", s.Name(), ErrUnavailable)
	}

	rate, ok := body.Rates[quote]
	return positive(s.Name(), quote, rate, ok)
}

// CurrencyAPI is currencyapi.com v3. It needs an api key.
type CurrencyAPI struct {
	client *resty.Client
	apiKey string
}

func NewCurrencyAPI(baseURL, apiKey string, timeout time.Duration) *CurrencyAPI {
	return &CurrencyAPI{client: newClient(baseURL, timeout), apiKey: apiKey}
}

func (s *CurrencyAPI) Name() string { return "currencyapi" }

func (s *CurrencyAPI) FetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	if s.apiKey == "" {
		return decimal.Zero, fmt.Errorf("%s: no api key: %w", s.Name(), ErrUnavailable)
	}

	var body struct {
		Data map[string]struct {
			Value decimal.Decimal `json:"value"`
		} `json:"data"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParams(map[string]string{
			"apikey":        s.apiKey,
			"base_currency": base,
			"currencies":    quote,
		}).
		Get("/v3/latest")
	if err := checkResponse(s.Name(), resp, err); err != nil {
		return decimal.Zero, err
	}

	entry, ok := body.Data[quote]
	return positive(s.Name(), quote, entry.Value, ok)
}
