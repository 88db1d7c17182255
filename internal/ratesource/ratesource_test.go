package ratesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeRateAPI_FetchRate(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/latest/USD", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"USD","rates":{"GHS":15.42,"EUR":0.92}}`))
	})

	rate, err := NewExchangeRateAPI(srv.URL, time.Second).FetchRate(context.Background(), "USD", "GHS")

	require.NoError(t, err)
	assert.Equal(t, "15.42", rate.String())
}

func TestExchangeRateAPI_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "server error", status: http.StatusInternalServerError, payload: `{}`},
		{name: "quote missing", status: http.StatusOK, payload: `{"rates":{"EUR":0.92}}`},
		{name: "zero rate", status: http.StatusOK, payload: `{"rates":{"GHS":0}}`},
		{name: "negative rate", status: http.StatusOK, payload: `{"rates":{"GHS":-3}}`},
		{name: "malformed body", status: http.StatusOK, payload: `{"rates":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			})

			_, err := NewExchangeRateAPI(srv.URL, time.Second).FetchRate(context.Background(), "USD", "GHS")

			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestExchangeRateAPI_Timeout(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"rates":{"GHS":15}}`))
	})

	_, err := NewExchangeRateAPI(srv.URL, 20*time.Millisecond).FetchRate(context.Background(), "USD", "GHS")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFixer_FetchRate(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/latest", r.URL.Path)
		assert.Equal(t, "key-1", r.URL.Query().Get("access_key"))
		assert.Equal(t, "GHS", r.URL.Query().Get("symbols"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"rates":{"GHS":15.1}}`))
	})

	rate, err := NewFixer(srv.URL, "key-1", time.Second).FetchRate(context.Background(), "USD", "GHS")

	require.NoError(t, err)
	assert.Equal(t, "15.1", rate.String())
}

func TestFixer_RejectedRequest(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":{"code":101}}`))
	})

	_, err := NewFixer(srv.URL, "bad", time.Second).FetchRate(context.Background(), "USD", "GHS")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestKeyedSources_SkipWithoutKey(t *testing.T) {
	called := false
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := NewFixer(srv.URL, "", time.Second).FetchRate(context.Background(), "USD", "GHS")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewCurrencyAPI(srv.URL, "", time.Second).FetchRate(context.Background(), "USD", "GHS")
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.False(t, called)
}

func TestCurrencyAPI_FetchRate(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/latest", r.URL.Path)
		assert.Equal(t, "key-2", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"GHS":{"code":"GHS","value":14.98}}}`))
	})

	rate, err := NewCurrencyAPI(srv.URL, "key-2", time.Second).FetchRate(context.Background(), "USD", "GHS")

	require.NoError(t, err)
	assert.Equal(t, "14.98", rate.String())
}

func TestDefaults_PriorityOrder(t *testing.T) {
	sources := Defaults("", "", time.Second)

	require.Len(t, sources, 3)
	assert.Equal(t, "exchangerate-api", sources[0].Name())
	assert.Equal(t, "fixer", sources[1].Name())
	assert.Equal(t, "currencyapi", sources[2].Name())
}
