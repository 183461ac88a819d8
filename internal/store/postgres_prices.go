package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

const priceCols = `id, buy_price_per_gram::TEXT, sell_price_per_gram::TEXT, created_by, effective_from`

func scanPrice(row pgx.Row) (models.Price, error) {
	var p models.Price
	var buy, sell string
	if err := row.Scan(&p.ID, &buy, &sell, &p.CreatedBy, &p.EffectiveFrom); err != nil {
		return models.Price{}, notFound(err)
	}
	p.BuyPricePerGram, _ = decimal.NewFromString(buy)
	p.SellPricePerGram, _ = decimal.NewFromString(sell)
	return p, nil
}

func (p *Postgres) SetPrice(ctx context.Context, price models.Price) (models.Price, error) {
	if price.ID == "" {
		price.ID = uuid.NewString()
	}
	return scanPrice(p.q.QueryRow(ctx,
		`INSERT INTO prices(id, buy_price_per_gram, sell_price_per_gram, created_by)
		 VALUES($1,$2::NUMERIC,$3::NUMERIC,$4)
		 RETURNING `+priceCols,
		price.ID, price.BuyPricePerGram.String(), price.SellPricePerGram.String(), price.CreatedBy))
}

func (p *Postgres) CurrentPrice(ctx context.Context) (models.Price, error) {
	price, err := scanPrice(p.q.QueryRow(ctx,
		`SELECT `+priceCols+` FROM prices ORDER BY effective_from DESC LIMIT 1`))
	if errors.Is(err, ErrNotFound) {
		return models.Price{}, ErrNoPrice
	}
	return price, err
}

func (p *Postgres) ListPrices(ctx context.Context, limit int) ([]models.Price, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.q.Query(ctx,
		`SELECT `+priceCols+` FROM prices ORDER BY effective_from DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Price
	for rows.Next() {
		price, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, price)
	}
	return out, rows.Err()
}
