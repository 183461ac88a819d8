package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

const balanceCols = `user_id, owned_grams::TEXT, locked_grams::TEXT, updated_at`

func scanBalance(row pgx.Row) (models.Balance, error) {
	var b models.Balance
	var owned, locked string
	if err := row.Scan(&b.UserID, &owned, &locked, &b.UpdatedAt); err != nil {
		return models.Balance{}, notFound(err)
	}
	b.OwnedGrams, _ = decimal.NewFromString(owned)
	b.LockedGrams, _ = decimal.NewFromString(locked)
	return b, nil
}

func (p *Postgres) GetBalance(ctx context.Context, userID string) (models.Balance, error) {
	return scanBalance(p.q.QueryRow(ctx,
		`SELECT `+balanceCols+` FROM user_balances WHERE user_id=$1`, userID))
}

func (p *Postgres) CreditBalance(ctx context.Context, userID string, grams decimal.Decimal) (models.Balance, error) {
	return scanBalance(p.q.QueryRow(ctx,
		`INSERT INTO user_balances(user_id, owned_grams, locked_grams)
		 VALUES($1, $2::NUMERIC, 0)
		 ON CONFLICT (user_id) DO UPDATE
		 SET owned_grams = user_balances.owned_grams + EXCLUDED.owned_grams,
		     updated_at = now()
		 RETURNING `+balanceCols,
		userID, grams.String()))
}

// LockBalance is conditional on available (owned - locked) at the moment of
// the update, which is the authoritative check behind the sell flow's
// read-only pre-check.
func (p *Postgres) LockBalance(ctx context.Context, userID string, grams decimal.Decimal) error {
	return p.condBalanceUpdate(ctx,
		`UPDATE user_balances
		    SET locked_grams = locked_grams + $2::NUMERIC, updated_at = now()
		  WHERE user_id = $1 AND owned_grams - locked_grams >= $2::NUMERIC`,
		userID, grams)
}

func (p *Postgres) UnlockBalance(ctx context.Context, userID string, grams decimal.Decimal) error {
	return p.condBalanceUpdate(ctx,
		`UPDATE user_balances
		    SET locked_grams = locked_grams - $2::NUMERIC, updated_at = now()
		  WHERE user_id = $1 AND locked_grams >= $2::NUMERIC`,
		userID, grams)
}

func (p *Postgres) SettleSell(ctx context.Context, userID string, grams decimal.Decimal) error {
	return p.condBalanceUpdate(ctx,
		`UPDATE user_balances
		    SET owned_grams = owned_grams - $2::NUMERIC,
		        locked_grams = locked_grams - $2::NUMERIC,
		        updated_at = now()
		  WHERE user_id = $1 AND locked_grams >= $2::NUMERIC AND owned_grams >= $2::NUMERIC`,
		userID, grams)
}

func (p *Postgres) condBalanceUpdate(ctx context.Context, sql, userID string, grams decimal.Decimal) error {
	tag, err := p.q.Exec(ctx, sql, userID, grams.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}
	return nil
}
