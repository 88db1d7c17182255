package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/internal/api"
	"checkout-service/internal/config"
	"checkout-service/internal/notify"
	"checkout-service/internal/ratesource"
	"checkout-service/internal/repository"
	"checkout-service/internal/service"
	"checkout-service/migrations"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/time/rate"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "checkout-service").Logger()

func connectDBEnv(host, port, user, pass, dbname string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				logger.Info().Msgf("✅ Connected to DB %s", dbname)
				return db, nil
			}
		}
		logger.Warn().Err(err).Msgf("❌ Retry %d: Failed to connect to DB %s (%s:%s)", i+1, dbname, host, port)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %v", dbname, host, port, err)
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

func initMetrics(ctx context.Context, cfg *config.Config) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("No .env file found, using environment")
	}
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()

	tp, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialise tracer")
	}
	mp, err := initMetrics(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialise metrics")
	}

	db, err := connectDBEnv(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)
	if err != nil {
		panic(err)
	}

	if err := migrations.AutoMigrateCatalog(3, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate catalog tables")
	}
	if err := migrations.AutoMigrateOrders(3, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate order tables")
	}
	if err := migrations.AutoMigratePromoCodes(3, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate promo_codes table")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	kafkaWriter := config.NewKafkaWriter(cfg.KafkaBrokers, cfg.NotificationTopic)
	dispatcher := notify.NewKafkaDispatcher(kafkaWriter, cfg.NotificationTimeout)

	catalogRepo := repository.NewCatalogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	promoRepo := repository.NewPromoCodeRepository(db)
	rateCache := repository.NewRateCache(rdb)
	paymentStore := repository.NewPaymentTransactionStore(rdb, cfg.MobileMoneyRecordTTL)

	validator := service.NewStockValidator(catalogRepo, cfg.LowStockThreshold)
	promos := service.NewPromoCodeEngine(promoRepo)
	finalizer := service.NewOrderFinalizer(orderRepo, catalogRepo, promoRepo, validator, promos, dispatcher, cfg.DefaultShippingCost)
	stateMachine := service.NewOrderStateMachine(orderRepo, dispatcher)
	sources := ratesource.Defaults(cfg.FixerAPIKey, cfg.CurrencyAPIKey, cfg.RateSourceTimeout)
	converter := service.NewCurrencyConverter(rateCache, sources, cfg.RateCacheTTL, cfg.FallbackRate)
	momo := service.NewMobileMoneyService(converter, paymentStore, service.SandboxGateway{})

	orderHandler := api.NewOrderHandler(finalizer, validator, promos, stateMachine)
	paymentHandler := api.NewPaymentHandler(converter, momo)

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimit),
				Burst:     cfg.RateBurst,
				ExpiresIn: cfg.RateExpiresIn,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	api.RegisterRoutes(e, orderHandler, paymentHandler, cfg.JWTSecret)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			logger.Info().Err(err).Msg("Shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down the server")
	}
	if err := kafkaWriter.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing kafka writer")
	}
	if err := rdb.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing redis client")
	}
	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing database")
	}
	_ = tp.Shutdown(shutdownCtx)
	_ = mp.Shutdown(shutdownCtx)
}
