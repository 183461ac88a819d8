package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price is an immutable buy/sell quote snapshot. Rows are append-only; the
// current price is the most recent by EffectiveFrom.
type Price struct {
	ID               string          `json:"id"`
	BuyPricePerGram  decimal.Decimal `json:"buy_price_per_gram"`
	SellPricePerGram decimal.Decimal `json:"sell_price_per_gram"`
	CreatedBy        string          `json:"created_by"`
	EffectiveFrom    time.Time       `json:"effective_from"`
}
