package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

const payoutCols = `id, user_id, amount_kes::TEXT, phone, status, provider_ref, notes, created_at`

func scanPayout(row pgx.Row) (models.Payout, error) {
	var p models.Payout
	var amount string
	if err := row.Scan(&p.ID, &p.UserID, &amount, &p.Phone, &p.Status,
		&p.ProviderRef, &p.Notes, &p.CreatedAt); err != nil {
		return models.Payout{}, notFound(err)
	}
	p.AmountKes, _ = decimal.NewFromString(amount)
	return p, nil
}

func (p *Postgres) CreatePayout(ctx context.Context, payout models.Payout) (models.Payout, error) {
	if payout.ID == "" {
		payout.ID = uuid.NewString()
	}
	return scanPayout(p.q.QueryRow(ctx,
		`INSERT INTO payouts(id, user_id, amount_kes, phone, status)
		 VALUES($1,$2,$3::NUMERIC,$4,$5)
		 RETURNING `+payoutCols,
		payout.ID, payout.UserID, payout.AmountKes.String(), payout.Phone, payout.Status))
}

func (p *Postgres) GetPayout(ctx context.Context, id string) (models.Payout, error) {
	return scanPayout(p.q.QueryRow(ctx, `SELECT `+payoutCols+` FROM payouts WHERE id=$1`, id))
}

func (p *Postgres) ListPayouts(ctx context.Context, status models.PayoutStatus, limit int) ([]models.Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	sql := `SELECT ` + payoutCols + ` FROM payouts ORDER BY created_at DESC LIMIT $1`
	args := []any{limit}
	if status != "" {
		sql = `SELECT ` + payoutCols + ` FROM payouts WHERE status=$2 ORDER BY created_at DESC LIMIT $1`
		args = append(args, status)
	}
	rows, err := p.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, payout)
	}
	return out, rows.Err()
}

func (p *Postgres) FinalizePayout(ctx context.Context, id string, status models.PayoutStatus, providerRef, notes string) error {
	tag, err := p.q.Exec(ctx,
		`UPDATE payouts
		    SET status=$2,
		        provider_ref = CASE WHEN $3 <> '' THEN $3 ELSE provider_ref END,
		        notes = CASE WHEN $4 <> '' THEN $4 ELSE notes END
		  WHERE id=$1 AND status='pending'`,
		id, status, providerRef, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := p.q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM payouts WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrAlreadyFinalized
		}
		return ErrNotFound
	}
	return nil
}
