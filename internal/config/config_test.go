package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("RATE_CACHE_TTL", "")
	t.Setenv("FALLBACK_USD_TO_GHS", "")
	t.Setenv("NOTIFICATION_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.RateCacheTTL)
	assert.True(t, cfg.FallbackRate.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, "order-notifications", cfg.NotificationTopic)
	assert.Len(t, cfg.KafkaBrokers, 3)
	assert.Equal(t, 2*time.Second, cfg.NotificationTimeout)
}

func TestNewKafkaWriter_FlushesPromptly(t *testing.T) {
	writer := NewKafkaWriter([]string{"kafka:9092"}, "order-notifications")

	assert.Equal(t, "order-notifications", writer.Topic)
	assert.Equal(t, 10*time.Millisecond, writer.BatchTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("RATE_CACHE_TTL", "30m")
	t.Setenv("FALLBACK_USD_TO_GHS", "15.25")
	t.Setenv("LOW_STOCK_THRESHOLD", "3")

	cfg := Load()

	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.RateCacheTTL)
	assert.True(t, cfg.FallbackRate.Equal(decimal.RequireFromString("15.25")))
	assert.Equal(t, 3, cfg.LowStockThreshold)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("RATE_SOURCE_TIMEOUT", "soon")
	t.Setenv("LOW_STOCK_THRESHOLD", "many")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.RateSourceTimeout)
	assert.Equal(t, 5, cfg.LowStockThreshold)
}
