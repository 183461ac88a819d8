package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance holds one user's gold. LockedGrams are owned grams earmarked for an
// in-flight sell; they stay owned until the sell is approved.
// Invariant: 0 <= LockedGrams <= OwnedGrams.
type Balance struct {
	UserID      string          `json:"user_id"`
	OwnedGrams  decimal.Decimal `json:"grams"`
	LockedGrams decimal.Decimal `json:"locked_grams"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AvailableGrams is what the user may still sell.
func (b Balance) AvailableGrams() decimal.Decimal {
	return b.OwnedGrams.Sub(b.LockedGrams)
}
