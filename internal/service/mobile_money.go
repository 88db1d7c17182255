package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"checkout-service/internal/entity"
	"checkout-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrTransactionNotFound = errors.New("transaction not found")
)

const defaultCountryCode = "+233"

// MobileMoneyGateway decides how a pending payment has progressed.
type MobileMoneyGateway interface {
	Resolve(txn *entity.MobileMoneyTransaction, now time.Time) entity.PaymentStatus
}

// SandboxGateway simulates the provider: numbers ending in 1111 succeed after
// five seconds, numbers ending in 2222 fail after three, the rest stay pending.
type SandboxGateway struct{}

func (SandboxGateway) Resolve(txn *entity.MobileMoneyTransaction, now time.Time) entity.PaymentStatus {
	elapsed := now.Sub(txn.CreatedAt)
	switch {
	case strings.HasSuffix(txn.Phone, "1111") && elapsed >= 5*time.Second:
		return entity.PaymentStatusSuccess
	case strings.HasSuffix(txn.Phone, "2222") && elapsed >= 3*time.Second:
		return entity.PaymentStatusFailed
	default:
		return txn.Status
	}
}

type MobileMoneyService struct {
	converter *CurrencyConverter
	store     repository.PaymentTransactionStore
	gateway   MobileMoneyGateway
	now       func() time.Time
}

func NewMobileMoneyService(converter *CurrencyConverter, store repository.PaymentTransactionStore, gateway MobileMoneyGateway) *MobileMoneyService {
	return &MobileMoneyService{converter: converter, store: store, gateway: gateway, now: time.Now}
}

// Initiate prices the USD amount in GHS and records a pending transaction.
func (s *MobileMoneyService) Initiate(ctx context.Context, phone string, usdAmount decimal.Decimal) (*entity.MobileMoneyTransaction, error) {
	normalized := NormalizePhone(phone)
	if len(normalized) < 10 {
		return nil, ErrInvalidPhone
	}
	if !usdAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	conversion := s.converter.Convert(ctx, usdAmount)
	now := s.now().UTC()
	txn := &entity.MobileMoneyTransaction{
		Reference:    uuid.NewString(),
		Status:       entity.PaymentStatusPending,
		Phone:        normalized,
		USDAmount:    usdAmount,
		MinorUnits:   conversion.MinorUnits,
		Currency:     RailCurrency,
		ExchangeRate: conversion.ExchangeRate,
		Conversion:   conversion,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.SaveTransaction(ctx, txn); err != nil {
		logger.Error().Err(err).Msgf("Error saving mobile money transaction %s", txn.Reference)
		return nil, err
	}

	logger.Info().Msgf("Mobile money payment %s initiated: %s (%s)", txn.Reference, conversion.AmountDisplay, conversion.USDDisplay)
	return txn, nil
}

// Status returns the transaction, advancing it first if the gateway has
// settled it since the last read.
func (s *MobileMoneyService) Status(ctx context.Context, reference string) (*entity.MobileMoneyTransaction, error) {
	txn, err := s.store.GetTransaction(ctx, reference)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting mobile money transaction %s", reference)
		return nil, err
	}

	if txn.Status != entity.PaymentStatusPending {
		return txn, nil
	}

	now := s.now().UTC()
	if status := s.gateway.Resolve(txn, now); status != txn.Status {
		txn.Status = status
		txn.UpdatedAt = now
		if err := s.store.SaveTransaction(ctx, txn); err != nil {
			logger.Error().Err(err).Msgf("Error saving mobile money transaction %s", reference)
			return nil, err
		}
		logger.Info().Msgf("Mobile money payment %s is now %s", reference, status)
	}
	return txn, nil
}

// NormalizePhone strips formatting and adds the Ghana country code when the
// number has none.
func NormalizePhone(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return defaultCountryCode + strings.TrimLeft(phone, "0")
}
