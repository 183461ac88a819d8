package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

const ledgerCols = `id, user_id, kind, grams::TEXT, price_per_gram::TEXT, total_kes::TEXT, pool_id, reference, status, created_at`

func scanLedger(row pgx.Row) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	var grams, price, total string
	if err := row.Scan(&e.ID, &e.UserID, &e.Kind, &grams, &price, &total,
		&e.PoolID, &e.Reference, &e.Status, &e.CreatedAt); err != nil {
		return models.LedgerEntry{}, notFound(err)
	}
	e.Grams, _ = decimal.NewFromString(grams)
	e.PricePerGram, _ = decimal.NewFromString(price)
	e.TotalKes, _ = decimal.NewFromString(total)
	return e, nil
}

func (p *Postgres) CreateLedgerEntry(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return scanLedger(p.q.QueryRow(ctx,
		`INSERT INTO ledger(id, user_id, kind, grams, price_per_gram, total_kes, pool_id, reference, status)
		 VALUES($1,$2,$3,$4::NUMERIC,$5::NUMERIC,$6::NUMERIC,$7,$8,$9)
		 RETURNING `+ledgerCols,
		e.ID, e.UserID, e.Kind, e.Grams.String(), e.PricePerGram.String(),
		e.TotalKes.String(), e.PoolID, e.Reference, e.Status))
}

func (p *Postgres) GetLedgerEntry(ctx context.Context, id string) (models.LedgerEntry, error) {
	return scanLedger(p.q.QueryRow(ctx, `SELECT `+ledgerCols+` FROM ledger WHERE id=$1`, id))
}

func (p *Postgres) ListLedgerByUser(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return p.queryLedger(ctx,
		`SELECT `+ledgerCols+` FROM ledger WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
}

func (p *Postgres) ListLedger(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return p.queryLedger(ctx,
		`SELECT `+ledgerCols+` FROM ledger ORDER BY created_at DESC LIMIT $1`, limit)
}

// FinalizeLedgerEntry's WHERE status='pending' guard makes terminal
// transitions first-writer-wins: a replayed confirmation or a racing
// approval loses and gets ErrAlreadyFinalized.
func (p *Postgres) FinalizeLedgerEntry(ctx context.Context, id string, status models.LedgerStatus) error {
	tag, err := p.q.Exec(ctx,
		`UPDATE ledger SET status=$2 WHERE id=$1 AND status='pending'`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := p.q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM ledger WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrAlreadyFinalized
		}
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AppendLedgerReference(ctx context.Context, id, suffix string) error {
	tag, err := p.q.Exec(ctx,
		`UPDATE ledger SET reference = reference || '_' || $2 WHERE id=$1`, id, suffix)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FindPendingByReference(ctx context.Context, token string) (models.LedgerEntry, error) {
	if token == "" {
		return models.LedgerEntry{}, ErrNotFound
	}
	return scanLedger(p.q.QueryRow(ctx,
		`SELECT `+ledgerCols+` FROM ledger
		  WHERE status='pending' AND reference LIKE '%' || $1 || '%'
		  ORDER BY created_at DESC LIMIT 1`, token))
}

func (p *Postgres) FindByReference(ctx context.Context, token string) (models.LedgerEntry, error) {
	if token == "" {
		return models.LedgerEntry{}, ErrNotFound
	}
	return scanLedger(p.q.QueryRow(ctx,
		`SELECT `+ledgerCols+` FROM ledger
		  WHERE reference LIKE '%' || $1 || '%'
		  ORDER BY created_at DESC LIMIT 1`, token))
}

func (p *Postgres) FindPendingSell(ctx context.Context, userID string, amountKes decimal.Decimal) (models.LedgerEntry, error) {
	return scanLedger(p.q.QueryRow(ctx,
		`SELECT `+ledgerCols+` FROM ledger
		  WHERE user_id=$1 AND kind='sell' AND status='pending' AND total_kes=$2::NUMERIC
		  ORDER BY created_at DESC LIMIT 1`,
		userID, amountKes.String()))
}

func (p *Postgres) ListStalePendingBuys(ctx context.Context, olderThan time.Time) ([]models.LedgerEntry, error) {
	return p.queryLedger(ctx,
		`SELECT `+ledgerCols+` FROM ledger
		  WHERE kind='buy' AND status='pending' AND created_at < $1
		  ORDER BY created_at ASC`, olderThan)
}

func (p *Postgres) queryLedger(ctx context.Context, sql string, args ...any) ([]models.LedgerEntry, error) {
	rows, err := p.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LedgerEntry
	for rows.Next() {
		e, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
