package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

func (s PayoutStatus) Terminal() bool { return s != PayoutPending }

// Payout is an outbound money transfer request created alongside a sell's
// ledger entry. Transitions are driven by administrator approval/rejection,
// never automatically.
type Payout struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	AmountKes   decimal.Decimal `json:"amount_kes"`
	Phone       string          `json:"phone"`
	Status      PayoutStatus    `json:"status"`
	ProviderRef string          `json:"provider_ref,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
