package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// MobileMoneyTransaction is the persisted record of one payment attempt on
// the mobile-money rail, keyed by Reference.
type MobileMoneyTransaction struct {
	Reference    string          `json:"reference"`
	Status       PaymentStatus   `json:"status"`
	Phone        string          `json:"phone"`
	USDAmount    decimal.Decimal `json:"usd_amount"`
	MinorUnits   int64           `json:"ghs_amount"`
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Conversion   Conversion      `json:"conversion_info"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
