package store

// Locked wrappers. *MemoryStore methods take the mutex; memView methods run
// inside an Atomic callback where the mutex is already held.

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

func (s *MemoryStore) locked() func() { s.mu.Lock(); return s.mu.Unlock }

func (s *MemoryStore) CreateUser(_ context.Context, email, hash, role string) (models.User, error) {
	defer s.locked()()
	return s.createUser(email, hash, role)
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	defer s.locked()()
	return s.getUserByID(id)
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	defer s.locked()()
	return s.getUserByEmail(email)
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	defer s.locked()()
	return s.listUsers()
}

func (s *MemoryStore) SetPrice(_ context.Context, p models.Price) (models.Price, error) {
	defer s.locked()()
	return s.setPrice(p)
}

func (s *MemoryStore) CurrentPrice(_ context.Context) (models.Price, error) {
	defer s.locked()()
	return s.currentPrice()
}

func (s *MemoryStore) ListPrices(_ context.Context, limit int) ([]models.Price, error) {
	defer s.locked()()
	return s.listPrices(limit)
}

func (s *MemoryStore) CreatePool(_ context.Context, name, purity string, total decimal.Decimal) (models.Pool, error) {
	defer s.locked()()
	return s.createPool(name, purity, total)
}

func (s *MemoryStore) GetPool(_ context.Context, id string) (models.Pool, error) {
	defer s.locked()()
	return s.getPool(id)
}

func (s *MemoryStore) ListPools(_ context.Context) ([]models.Pool, error) {
	defer s.locked()()
	return s.listPools()
}

func (s *MemoryStore) ReservePool(_ context.Context, poolID string, grams decimal.Decimal) (models.Pool, error) {
	defer s.locked()()
	return s.reservePool(poolID, grams)
}

func (s *MemoryStore) ReleasePool(_ context.Context, poolID string, grams decimal.Decimal) error {
	defer s.locked()()
	return s.releasePool(poolID, grams)
}

func (s *MemoryStore) TopUpPool(_ context.Context, poolID string, added decimal.Decimal) (models.Pool, error) {
	defer s.locked()()
	return s.topUpPool(poolID, added)
}

func (s *MemoryStore) GetBalance(_ context.Context, userID string) (models.Balance, error) {
	defer s.locked()()
	return s.getBalance(userID)
}

func (s *MemoryStore) CreditBalance(_ context.Context, userID string, grams decimal.Decimal) (models.Balance, error) {
	defer s.locked()()
	return s.creditBalance(userID, grams)
}

func (s *MemoryStore) LockBalance(_ context.Context, userID string, grams decimal.Decimal) error {
	defer s.locked()()
	return s.lockBalance(userID, grams)
}

func (s *MemoryStore) UnlockBalance(_ context.Context, userID string, grams decimal.Decimal) error {
	defer s.locked()()
	return s.unlockBalance(userID, grams)
}

func (s *MemoryStore) SettleSell(_ context.Context, userID string, grams decimal.Decimal) error {
	defer s.locked()()
	return s.settleSell(userID, grams)
}

func (s *MemoryStore) CreateLedgerEntry(_ context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	defer s.locked()()
	return s.createLedgerEntry(e)
}

func (s *MemoryStore) GetLedgerEntry(_ context.Context, id string) (models.LedgerEntry, error) {
	defer s.locked()()
	return s.getLedgerEntry(id)
}

func (s *MemoryStore) ListLedgerByUser(_ context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	defer s.locked()()
	return s.listLedgerByUser(userID, limit)
}

func (s *MemoryStore) ListLedger(_ context.Context, limit int) ([]models.LedgerEntry, error) {
	defer s.locked()()
	return s.listLedger(limit)
}

func (s *MemoryStore) FinalizeLedgerEntry(_ context.Context, id string, status models.LedgerStatus) error {
	defer s.locked()()
	return s.finalizeLedgerEntry(id, status)
}

func (s *MemoryStore) AppendLedgerReference(_ context.Context, id, suffix string) error {
	defer s.locked()()
	return s.appendLedgerReference(id, suffix)
}

func (s *MemoryStore) FindPendingByReference(_ context.Context, token string) (models.LedgerEntry, error) {
	defer s.locked()()
	return s.findPendingByReference(token)
}

func (s *MemoryStore) FindByReference(_ context.Context, token string) (models.LedgerEntry, error) {
	defer s.locked()()
	return s.findByReference(token)
}

func (s *MemoryStore) FindPendingSell(_ context.Context, userID string, amountKes decimal.Decimal) (models.LedgerEntry, error) {
	defer s.locked()()
	return s.findPendingSell(userID, amountKes)
}

func (s *MemoryStore) ListStalePendingBuys(_ context.Context, olderThan time.Time) ([]models.LedgerEntry, error) {
	defer s.locked()()
	return s.listStalePendingBuys(olderThan)
}

func (s *MemoryStore) CreatePayout(_ context.Context, p models.Payout) (models.Payout, error) {
	defer s.locked()()
	return s.createPayout(p)
}

func (s *MemoryStore) GetPayout(_ context.Context, id string) (models.Payout, error) {
	defer s.locked()()
	return s.getPayout(id)
}

func (s *MemoryStore) ListPayouts(_ context.Context, status models.PayoutStatus, limit int) ([]models.Payout, error) {
	defer s.locked()()
	return s.listPayouts(status, limit)
}

func (s *MemoryStore) FinalizePayout(_ context.Context, id string, status models.PayoutStatus, providerRef, notes string) error {
	defer s.locked()()
	return s.finalizePayout(id, status, providerRef, notes)
}

func (s *MemoryStore) CreateAuditLog(_ context.Context, l models.AuditLog) error {
	defer s.locked()()
	return s.createAuditLog(l)
}

// --- memView: same operations, mutex already held by Atomic ---

func (v memView) CreateUser(_ context.Context, email, hash, role string) (models.User, error) {
	return v.s.createUser(email, hash, role)
}
func (v memView) GetUserByID(_ context.Context, id string) (models.User, error) {
	return v.s.getUserByID(id)
}
func (v memView) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	return v.s.getUserByEmail(email)
}
func (v memView) ListUsers(_ context.Context) ([]models.User, error) { return v.s.listUsers() }
func (v memView) SetPrice(_ context.Context, p models.Price) (models.Price, error) {
	return v.s.setPrice(p)
}
func (v memView) CurrentPrice(_ context.Context) (models.Price, error) { return v.s.currentPrice() }
func (v memView) ListPrices(_ context.Context, limit int) ([]models.Price, error) {
	return v.s.listPrices(limit)
}
func (v memView) CreatePool(_ context.Context, name, purity string, total decimal.Decimal) (models.Pool, error) {
	return v.s.createPool(name, purity, total)
}
func (v memView) GetPool(_ context.Context, id string) (models.Pool, error) { return v.s.getPool(id) }
func (v memView) ListPools(_ context.Context) ([]models.Pool, error)        { return v.s.listPools() }
func (v memView) ReservePool(_ context.Context, poolID string, grams decimal.Decimal) (models.Pool, error) {
	return v.s.reservePool(poolID, grams)
}
func (v memView) ReleasePool(_ context.Context, poolID string, grams decimal.Decimal) error {
	return v.s.releasePool(poolID, grams)
}
func (v memView) TopUpPool(_ context.Context, poolID string, added decimal.Decimal) (models.Pool, error) {
	return v.s.topUpPool(poolID, added)
}
func (v memView) GetBalance(_ context.Context, userID string) (models.Balance, error) {
	return v.s.getBalance(userID)
}
func (v memView) CreditBalance(_ context.Context, userID string, grams decimal.Decimal) (models.Balance, error) {
	return v.s.creditBalance(userID, grams)
}
func (v memView) LockBalance(_ context.Context, userID string, grams decimal.Decimal) error {
	return v.s.lockBalance(userID, grams)
}
func (v memView) UnlockBalance(_ context.Context, userID string, grams decimal.Decimal) error {
	return v.s.unlockBalance(userID, grams)
}
func (v memView) SettleSell(_ context.Context, userID string, grams decimal.Decimal) error {
	return v.s.settleSell(userID, grams)
}
func (v memView) CreateLedgerEntry(_ context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	return v.s.createLedgerEntry(e)
}
func (v memView) GetLedgerEntry(_ context.Context, id string) (models.LedgerEntry, error) {
	return v.s.getLedgerEntry(id)
}
func (v memView) ListLedgerByUser(_ context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	return v.s.listLedgerByUser(userID, limit)
}
func (v memView) ListLedger(_ context.Context, limit int) ([]models.LedgerEntry, error) {
	return v.s.listLedger(limit)
}
func (v memView) FinalizeLedgerEntry(_ context.Context, id string, status models.LedgerStatus) error {
	return v.s.finalizeLedgerEntry(id, status)
}
func (v memView) AppendLedgerReference(_ context.Context, id, suffix string) error {
	return v.s.appendLedgerReference(id, suffix)
}
func (v memView) FindPendingByReference(_ context.Context, token string) (models.LedgerEntry, error) {
	return v.s.findPendingByReference(token)
}
func (v memView) FindByReference(_ context.Context, token string) (models.LedgerEntry, error) {
	return v.s.findByReference(token)
}
func (v memView) FindPendingSell(_ context.Context, userID string, amountKes decimal.Decimal) (models.LedgerEntry, error) {
	return v.s.findPendingSell(userID, amountKes)
}
func (v memView) ListStalePendingBuys(_ context.Context, olderThan time.Time) ([]models.LedgerEntry, error) {
	return v.s.listStalePendingBuys(olderThan)
}
func (v memView) CreatePayout(_ context.Context, p models.Payout) (models.Payout, error) {
	return v.s.createPayout(p)
}
func (v memView) GetPayout(_ context.Context, id string) (models.Payout, error) {
	return v.s.getPayout(id)
}
func (v memView) ListPayouts(_ context.Context, status models.PayoutStatus, limit int) ([]models.Payout, error) {
	return v.s.listPayouts(status, limit)
}
func (v memView) FinalizePayout(_ context.Context, id string, status models.PayoutStatus, providerRef, notes string) error {
	return v.s.finalizePayout(id, status, providerRef, notes)
}
func (v memView) CreateAuditLog(_ context.Context, l models.AuditLog) error {
	return v.s.createAuditLog(l)
}
