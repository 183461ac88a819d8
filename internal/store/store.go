// Package store defines the persistence interface for the settlement core.
// PostgreSQL is the source of truth; an in-memory implementation backs tests
// and development.
//
// Pool and balance rows are the only shared mutable state in the system and
// are mutated exclusively through the conditional operations below, so a
// reservation or lock can never overshoot what is physically there.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient gold available in pools")
	ErrInsufficientBalance   = errors.New("insufficient gold balance")
	ErrAlreadyFinalized      = errors.New("entry already finalized")
	ErrNoPrice               = errors.New("no current price available")
	ErrDuplicateEmail        = errors.New("an account with this email already exists")
)

// Store is the persistence interface for all settlement entities.
//
// Atomic runs fn against a store view whose writes commit together or not at
// all. The postgres implementation opens one serializable transaction; the
// memory implementation serializes callers and restores a snapshot on error.
// Every compound mutation in the settlement engine (reserve+ledger write,
// lock+ledger+payout write, approve/reject, reconcile) goes through Atomic.
// Atomic must not be nested.
type Store interface {
	Atomic(ctx context.Context, fn func(Store) error) error

	// Users
	CreateUser(ctx context.Context, email, passwordHash, role string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Prices (append-only; current = latest by effective_from)
	SetPrice(ctx context.Context, p models.Price) (models.Price, error)
	CurrentPrice(ctx context.Context) (models.Price, error)
	ListPrices(ctx context.Context, limit int) ([]models.Price, error)

	// Pools
	CreatePool(ctx context.Context, name, purity string, totalGrams decimal.Decimal) (models.Pool, error)
	GetPool(ctx context.Context, id string) (models.Pool, error)
	ListPools(ctx context.Context) ([]models.Pool, error)
	// ReservePool atomically decrements available grams. With poolID == ""
	// the oldest-created pool with enough availability is chosen. Returns
	// ErrInsufficientInventory when no pool qualifies.
	ReservePool(ctx context.Context, poolID string, grams decimal.Decimal) (models.Pool, error)
	// ReleasePool returns previously reserved (or sold) grams. With
	// poolID == "" the grams are spread across pools with allocation
	// headroom (total - available), oldest first, since holdings sold
	// back may have been reserved out of several pools. Returns
	// ErrNotFound when the pools cannot absorb the full amount; unrouted
	// releases must run inside Atomic.
	ReleasePool(ctx context.Context, poolID string, grams decimal.Decimal) error
	TopUpPool(ctx context.Context, poolID string, addedGrams decimal.Decimal) (models.Pool, error)

	// Balances. Credit creates the row lazily; Lock fails with
	// ErrInsufficientBalance unless owned - locked >= grams at the moment of
	// the update; SettleSell removes grams from both owned and locked.
	GetBalance(ctx context.Context, userID string) (models.Balance, error)
	CreditBalance(ctx context.Context, userID string, grams decimal.Decimal) (models.Balance, error)
	LockBalance(ctx context.Context, userID string, grams decimal.Decimal) error
	UnlockBalance(ctx context.Context, userID string, grams decimal.Decimal) error
	SettleSell(ctx context.Context, userID string, grams decimal.Decimal) error

	// Ledger
	CreateLedgerEntry(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error)
	GetLedgerEntry(ctx context.Context, id string) (models.LedgerEntry, error)
	ListLedgerByUser(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
	ListLedger(ctx context.Context, limit int) ([]models.LedgerEntry, error)
	// FinalizeLedgerEntry moves a pending entry to a terminal status.
	// Replays on an already-terminal entry return ErrAlreadyFinalized and
	// mutate nothing.
	FinalizeLedgerEntry(ctx context.Context, id string, status models.LedgerStatus) error
	AppendLedgerReference(ctx context.Context, id, suffix string) error
	// FindPendingByReference returns the most recent pending entry whose
	// reference contains token.
	FindPendingByReference(ctx context.Context, token string) (models.LedgerEntry, error)
	// FindByReference is the any-status variant, used to tell a replayed
	// confirmation apart from an unknown one.
	FindByReference(ctx context.Context, token string) (models.LedgerEntry, error)
	// FindPendingSell locates the sell entry a payout was created for
	// (user + amount + pending, most recent first).
	FindPendingSell(ctx context.Context, userID string, amountKes decimal.Decimal) (models.LedgerEntry, error)
	ListStalePendingBuys(ctx context.Context, olderThan time.Time) ([]models.LedgerEntry, error)

	// Payouts
	CreatePayout(ctx context.Context, p models.Payout) (models.Payout, error)
	GetPayout(ctx context.Context, id string) (models.Payout, error)
	// ListPayouts filters by status when status != ""; limit <= 0 means 50.
	ListPayouts(ctx context.Context, status models.PayoutStatus, limit int) ([]models.Payout, error)
	// FinalizePayout mirrors FinalizeLedgerEntry's terminal guard.
	FinalizePayout(ctx context.Context, id string, status models.PayoutStatus, providerRef, notes string) error

	// Audit
	CreateAuditLog(ctx context.Context, l models.AuditLog) error
}
