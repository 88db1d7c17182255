package repository

import (
	"context"
	"testing"
	"time"

	"checkout-service/internal/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisRateCache_RoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewRateCache(rdb)
	ctx := context.Background()

	_, err := cache.GetRate(ctx, "USD", "GHS")
	require.ErrorIs(t, err, ErrNotFound)

	err = cache.SetRate(ctx, "USD", "GHS", CachedRate{Rate: decimal.RequireFromString("15.42")}, time.Hour)
	require.NoError(t, err)

	cached, err := cache.GetRate(ctx, "USD", "GHS")
	require.NoError(t, err)
	assert.Equal(t, "15.42", cached.Rate.String())
	assert.False(t, cached.IsFallback)

	mr.FastForward(time.Hour + time.Second)

	_, err = cache.GetRate(ctx, "USD", "GHS")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisPaymentTransactionStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewPaymentTransactionStore(rdb, 24*time.Hour)
	ctx := context.Background()

	txn := &entity.MobileMoneyTransaction{
		Reference:  "ref-1",
		Status:     entity.PaymentStatusPending,
		Phone:      "+233241111111",
		USDAmount:  decimal.RequireFromString("25.00"),
		MinorUnits: 31250,
		Currency:   "GHS",
	}
	require.NoError(t, store.SaveTransaction(ctx, txn))

	mr.FastForward(time.Hour)

	txn.Status = entity.PaymentStatusSuccess
	require.NoError(t, store.SaveTransaction(ctx, txn))

	got, err := store.GetTransaction(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusSuccess, got.Status)
	assert.Equal(t, int64(31250), got.MinorUnits)
	assert.LessOrEqual(t, mr.TTL("momo-transaction:ref-1"), 23*time.Hour)

	mr.FastForward(24 * time.Hour)

	_, err = store.GetTransaction(ctx, "ref-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
