package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port     string
	LogLevel string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisAddr string

	KafkaBrokers        []string
	NotificationTopic   string
	NotificationTimeout time.Duration

	JWTSecret string

	FixerAPIKey       string
	CurrencyAPIKey    string
	RateCacheTTL      time.Duration
	RateSourceTimeout time.Duration
	FallbackRate      decimal.Decimal

	LowStockThreshold   int
	DefaultShippingCost decimal.Decimal

	MobileMoneyRecordTTL time.Duration

	RateLimit      float64
	RateBurst      int
	RateExpiresIn  time.Duration
	OTLPEndpoint   string
	ServiceName    string
	AllowedOrigins []string
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8082"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "3306"),
		DBUser: getEnv("DB_USER", "root"),
		DBPass: getEnv("DB_PASS", ""),
		DBName: getEnv("DB_NAME", "checkout"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers:        getKafkaBrokerURLs(),
		NotificationTopic:   getEnv("NOTIFICATION_TOPIC", "order-notifications"),
		NotificationTimeout: getDuration("NOTIFICATION_TIMEOUT", 2*time.Second),

		JWTSecret: getEnv("JWT_SECRET", "secret"),

		FixerAPIKey:       os.Getenv("FIXER_API_KEY"),
		CurrencyAPIKey:    os.Getenv("CURRENCY_API_KEY"),
		RateCacheTTL:      getDuration("RATE_CACHE_TTL", time.Hour),
		RateSourceTimeout: getDuration("RATE_SOURCE_TIMEOUT", 5*time.Second),
		FallbackRate:      getDecimal("FALLBACK_USD_TO_GHS", decimal.RequireFromString("12.50")),

		LowStockThreshold:   getInt("LOW_STOCK_THRESHOLD", 5),
		DefaultShippingCost: getDecimal("DEFAULT_SHIPPING_COST", decimal.RequireFromString("9.99")),

		MobileMoneyRecordTTL: getDuration("MOMO_RECORD_TTL", 24*time.Hour),

		RateLimit:      getFloat("RATE_LIMIT", 10),
		RateBurst:      getInt("RATE_BURST", 20),
		RateExpiresIn:  getDuration("RATE_EXPIRES_IN", 3*time.Minute),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		ServiceName:    getEnv("SERVICE_NAME", "checkout-service"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
