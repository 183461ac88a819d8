package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pool is a reservoir of purity-graded gold inventory. AvailableGrams is the
// unreserved remainder; reservations decrement it, releases and top-ups
// increment it. Invariant: 0 <= AvailableGrams <= TotalGrams.
type Pool struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Purity         string          `json:"purity"`
	TotalGrams     decimal.Decimal `json:"total_grams"`
	AvailableGrams decimal.Decimal `json:"available_grams"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AllocatedGrams is the portion of inventory currently reserved or sold.
func (p Pool) AllocatedGrams() decimal.Decimal {
	return p.TotalGrams.Sub(p.AvailableGrams)
}
