package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerKind string

const (
	LedgerBuy  LedgerKind = "buy"
	LedgerSell LedgerKind = "sell"
)

type LedgerStatus string

const (
	LedgerPending   LedgerStatus = "pending"
	LedgerCompleted LedgerStatus = "completed"
	LedgerFailed    LedgerStatus = "failed"
)

// Terminal reports whether a status permits no further transitions.
func (s LedgerStatus) Terminal() bool { return s != LedgerPending }

// LedgerEntry is the append-once-then-frozen record of one trade attempt.
// It is created pending, moved exactly once to completed or failed, and is
// the system of record for whether money moved.
//
// Reference is the caller-opaque correlation string: "buy_<unix>_<uuid8>" at
// creation, with the gateway checkout id and later the payment receipt
// appended as "_"-separated suffixes so asynchronous confirmations can be
// matched back.
type LedgerEntry struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Kind         LedgerKind      `json:"type"`
	Grams        decimal.Decimal `json:"grams"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	TotalKes     decimal.Decimal `json:"total_kes"`
	PoolID       *string         `json:"pool_id,omitempty"` // buy only
	Reference    string          `json:"reference"`
	Status       LedgerStatus    `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
