package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

const poolCols = `id, name, purity, total_grams::TEXT, available_grams::TEXT, created_at, updated_at`

func scanPool(row pgx.Row) (models.Pool, error) {
	var p models.Pool
	var total, avail string
	if err := row.Scan(&p.ID, &p.Name, &p.Purity, &total, &avail, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Pool{}, notFound(err)
	}
	p.TotalGrams, _ = decimal.NewFromString(total)
	p.AvailableGrams, _ = decimal.NewFromString(avail)
	return p, nil
}

func (p *Postgres) CreatePool(ctx context.Context, name, purity string, totalGrams decimal.Decimal) (models.Pool, error) {
	return scanPool(p.q.QueryRow(ctx,
		`INSERT INTO pools(id, name, purity, total_grams, available_grams)
		 VALUES($1,$2,$3,$4::NUMERIC,$4::NUMERIC)
		 RETURNING `+poolCols,
		uuid.NewString(), name, purity, totalGrams.String()))
}

func (p *Postgres) GetPool(ctx context.Context, id string) (models.Pool, error) {
	return scanPool(p.q.QueryRow(ctx, `SELECT `+poolCols+` FROM pools WHERE id=$1`, id))
}

func (p *Postgres) ListPools(ctx context.Context) ([]models.Pool, error) {
	rows, err := p.q.Query(ctx, `SELECT `+poolCols+` FROM pools ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pool)
	}
	return out, rows.Err()
}

// ReservePool is a single conditional UPDATE so that two concurrent buys can
// never both pass an availability check the pool cannot actually cover.
func (p *Postgres) ReservePool(ctx context.Context, poolID string, grams decimal.Decimal) (models.Pool, error) {
	var row pgx.Row
	if poolID != "" {
		row = p.q.QueryRow(ctx,
			`UPDATE pools
			    SET available_grams = available_grams - $2::NUMERIC, updated_at = now()
			  WHERE id = $1 AND available_grams >= $2::NUMERIC
			  RETURNING `+poolCols,
			poolID, grams.String())
	} else {
		// Oldest-created pool first: deterministic, roughly FIFO depletion.
		row = p.q.QueryRow(ctx,
			`UPDATE pools
			    SET available_grams = available_grams - $1::NUMERIC, updated_at = now()
			  WHERE id = (SELECT id FROM pools
			               WHERE available_grams >= $1::NUMERIC
			               ORDER BY created_at ASC LIMIT 1
			               FOR UPDATE)
			  RETURNING `+poolCols,
			grams.String())
	}
	pool, err := scanPool(row)
	if errors.Is(err, ErrNotFound) {
		if poolID != "" {
			if _, gerr := p.GetPool(ctx, poolID); errors.Is(gerr, ErrNotFound) {
				return models.Pool{}, ErrNotFound
			}
		}
		return models.Pool{}, ErrInsufficientInventory
	}
	return pool, err
}

func (p *Postgres) ReleasePool(ctx context.Context, poolID string, grams decimal.Decimal) error {
	if poolID != "" {
		_, err := scanPool(p.q.QueryRow(ctx,
			`UPDATE pools
			    SET available_grams = available_grams + $2::NUMERIC, updated_at = now()
			  WHERE id = $1
			  RETURNING `+poolCols,
			poolID, grams.String()))
		return err
	}

	// Grams coming back from a settled sell carry no pool reference and may
	// have been reserved out of several pools, so spread them across pools
	// with allocation headroom, oldest first. Runs inside the caller's
	// Atomic transaction, so a shortfall rolls everything back.
	remaining := grams
	for remaining.IsPositive() {
		var id, headroomStr string
		err := p.q.QueryRow(ctx,
			`SELECT id, (total_grams - available_grams)::TEXT
			   FROM pools
			  WHERE total_grams - available_grams > 0
			  ORDER BY created_at ASC LIMIT 1
			  FOR UPDATE`).Scan(&id, &headroomStr)
		if err != nil {
			return notFound(err)
		}
		headroom, _ := decimal.NewFromString(headroomStr)
		take := decimal.Min(remaining, headroom)
		if _, err := p.q.Exec(ctx,
			`UPDATE pools
			    SET available_grams = available_grams + $2::NUMERIC, updated_at = now()
			  WHERE id = $1`,
			id, take.String()); err != nil {
			return err
		}
		remaining = remaining.Sub(take)
	}
	return nil
}

func (p *Postgres) TopUpPool(ctx context.Context, poolID string, addedGrams decimal.Decimal) (models.Pool, error) {
	return scanPool(p.q.QueryRow(ctx,
		`UPDATE pools
		    SET total_grams = total_grams + $2::NUMERIC,
		        available_grams = available_grams + $2::NUMERIC,
		        updated_at = now()
		  WHERE id = $1
		  RETURNING `+poolCols,
		poolID, addedGrams.String()))
}
