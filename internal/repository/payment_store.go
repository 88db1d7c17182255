package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/entity"

	"github.com/go-redis/redis/v8"
)

// PaymentTransactionStore persists mobile-money transaction records keyed by
// reference. Records expire on their own after the configured TTL.
type PaymentTransactionStore interface {
	SaveTransaction(ctx context.Context, txn *entity.MobileMoneyTransaction) error
	GetTransaction(ctx context.Context, reference string) (*entity.MobileMoneyTransaction, error)
}

type RedisPaymentTransactionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPaymentTransactionStore(rdb *redis.Client, ttl time.Duration) PaymentTransactionStore {
	return &RedisPaymentTransactionStore{rdb: rdb, ttl: ttl}
}

func transactionKey(reference string) string {
	return fmt.Sprintf("momo-transaction:%s", reference)
}

// SaveTransaction writes the record and keeps its remaining lifetime when it
// already exists.
func (s *RedisPaymentTransactionStore) SaveTransaction(ctx context.Context, txn *entity.MobileMoneyTransaction) error {
	payload, err := json.Marshal(txn)
	if err != nil {
		return err
	}

	key := transactionKey(txn.Reference)
	ttl := s.ttl
	remaining, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if remaining > 0 {
		ttl = remaining
	}
	return s.rdb.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisPaymentTransactionStore) GetTransaction(ctx context.Context, reference string) (*entity.MobileMoneyTransaction, error) {
	val, err := s.rdb.Get(ctx, transactionKey(reference)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var txn entity.MobileMoneyTransaction
	if err := json.Unmarshal([]byte(val), &txn); err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", reference, err)
	}
	return &txn, nil
}
