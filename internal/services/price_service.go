package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/store"
)

const (
	priceCacheKey = "price:current"
	priceCacheTTL = 30 * time.Second
)

// PriceService serves the current quote (read-through cached in Redis, since
// every trade and most page loads hit it) and lets administrators publish new
// ones. Prices are append-only; publishing never rewrites history.
type PriceService struct {
	st  store.Store
	rdb *redis.Client // optional; nil disables caching
}

func NewPriceService(st store.Store, rdb *redis.Client) *PriceService {
	return &PriceService{st: st, rdb: rdb}
}

// Quote is the client-facing view of a price row, with the spread spelled
// out.
type Quote struct {
	BuyPricePerGram  decimal.Decimal `json:"buy_price_per_gram"`
	SellPricePerGram decimal.Decimal `json:"sell_price_per_gram"`
	SpreadPerGram    decimal.Decimal `json:"spread_per_gram"`
	SpreadPct        decimal.Decimal `json:"spread_pct"`
	EffectiveFrom    time.Time       `json:"effective_from"`
}

func toQuote(p models.Price) Quote {
	spread := p.BuyPricePerGram.Sub(p.SellPricePerGram)
	q := Quote{
		BuyPricePerGram:  p.BuyPricePerGram,
		SellPricePerGram: p.SellPricePerGram,
		SpreadPerGram:    spread,
		EffectiveFrom:    p.EffectiveFrom,
	}
	if p.BuyPricePerGram.IsPositive() {
		q.SpreadPct = spread.Div(p.BuyPricePerGram).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return q
}

// Current returns the latest quote, from cache when fresh. Cache failures
// fall through to the store; they never fail a trade.
func (s *PriceService) Current(ctx context.Context) (Quote, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, priceCacheKey).Bytes(); err == nil {
			var q Quote
			if json.Unmarshal(raw, &q) == nil {
				return q, nil
			}
		}
	}

	p, err := s.st.CurrentPrice(ctx)
	if err != nil {
		return Quote{}, err
	}
	q := toQuote(p)

	if s.rdb != nil {
		if raw, err := json.Marshal(q); err == nil {
			if err := s.rdb.Set(ctx, priceCacheKey, raw, priceCacheTTL).Err(); err != nil {
				slog.Warn("price cache write", "err", err)
			}
		}
	}
	return q, nil
}

// Set publishes a new quote. The sell price must stay below the buy price so
// a buy-then-sell round trip can never mint money.
func (s *PriceService) Set(ctx context.Context, adminID string, buy, sell decimal.Decimal) (models.Price, error) {
	if !buy.IsPositive() || !sell.IsPositive() {
		return models.Price{}, invalid("prices must be positive")
	}
	if sell.GreaterThanOrEqual(buy) {
		return models.Price{}, invalid("sell price must be below buy price")
	}

	p, err := s.st.SetPrice(ctx, models.Price{
		BuyPricePerGram:  buy,
		SellPricePerGram: sell,
		CreatedBy:        adminID,
	})
	if err != nil {
		return models.Price{}, err
	}

	if s.rdb != nil {
		if err := s.rdb.Del(ctx, priceCacheKey).Err(); err != nil {
			slog.Warn("price cache invalidate", "err", err)
		}
	}
	slog.Info("price published", "buy", buy.String(), "sell", sell.String(), "admin_id", adminID)
	return p, nil
}

// History returns recent price rows, newest first.
func (s *PriceService) History(ctx context.Context, limit int) ([]models.Price, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.st.ListPrices(ctx, limit)
}
