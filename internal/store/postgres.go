package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goldvault/backend/internal/models"
)

// Postgres implements Store on a pgx pool. All gram/KES values are stored as
// NUMERIC and moved through shopspring/decimal via ::NUMERIC / ::TEXT casts.
type Postgres struct {
	pool *pgxpool.Pool // nil inside an Atomic callback
	q    querier
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: pool}
}

// Atomic runs fn inside one serializable transaction. The settlement engine
// relies on this for every compound mutation: either all rows move or none.
func (p *Postgres) Atomic(ctx context.Context, fn func(Store) error) error {
	if p.pool == nil {
		return errors.New("nested Atomic")
	}
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(&Postgres{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// --- Users ---

func (p *Postgres) CreateUser(ctx context.Context, email, hash, role string) (models.User, error) {
	u := models.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, Role: role}
	err := p.q.QueryRow(ctx,
		`INSERT INTO users(id, email, password_hash, role)
		 VALUES($1,$2,$3,$4)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.Role,
	).Scan(&u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrDuplicateEmail
	}
	return u, err
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return p.scanUser(p.q.QueryRow(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE id=$1`, id))
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return p.scanUser(p.q.QueryRow(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE email=$1`, email))
}

func (p *Postgres) scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, notFound(err)
}

func (p *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.q.Query(ctx,
		`SELECT id, email, password_hash, role, created_at
		   FROM users ORDER BY created_at DESC LIMIT 100`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- Audit ---

func (p *Postgres) CreateAuditLog(ctx context.Context, l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := p.q.Exec(ctx,
		`INSERT INTO audit_logs(id, entity_type, entity_id, action, details)
		 VALUES($1,$2,$3,$4,$5)`,
		l.ID, l.EntityType, l.EntityID, l.Action, l.Details)
	return err
}
