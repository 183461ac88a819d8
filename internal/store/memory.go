package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

// MemoryStore implements Store with in-memory slices/maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// A single mutex serializes all access. Atomic snapshots the whole state and
// restores it when fn fails, which gives the same all-or-nothing contract as
// the serializable postgres transaction.
type MemoryStore struct {
	mu sync.Mutex
	st memState
}

type memState struct {
	users    map[string]models.User
	balances map[string]models.Balance
	pools    []models.Pool // creation order
	prices   []models.Price
	ledger   []models.LedgerEntry // creation order
	payouts  []models.Payout
	audits   []models.AuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: memState{
		users:    make(map[string]models.User),
		balances: make(map[string]models.Balance),
	}}
}

func (s memState) clone() memState {
	c := memState{
		users:    make(map[string]models.User, len(s.users)),
		balances: make(map[string]models.Balance, len(s.balances)),
		pools:    append([]models.Pool(nil), s.pools...),
		prices:   append([]models.Price(nil), s.prices...),
		ledger:   append([]models.LedgerEntry(nil), s.ledger...),
		payouts:  append([]models.Payout(nil), s.payouts...),
		audits:   append([]models.AuditLog(nil), s.audits...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

// memView exposes the locked state to an Atomic callback without re-locking.
type memView struct{ s *MemoryStore }

func (s *MemoryStore) Atomic(_ context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(memView{s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (memView) Atomic(context.Context, func(Store) error) error {
	return errors.New("nested Atomic")
}

// --- Users ---

func (s *MemoryStore) createUser(email, hash, role string) (models.User, error) {
	for _, u := range s.st.users {
		if u.Email == email {
			return models.User{}, ErrDuplicateEmail
		}
	}
	u := models.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, Role: role, CreatedAt: time.Now().UTC()}
	s.st.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) getUserByID(id string) (models.User, error) {
	u, ok := s.st.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) getUserByEmail(email string) (models.User, error) {
	for _, u := range s.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) listUsers() ([]models.User, error) {
	out := make([]models.User, 0, len(s.st.users))
	for _, u := range s.st.users {
		out = append(out, u)
	}
	return out, nil
}

// --- Prices ---

func (s *MemoryStore) setPrice(p models.Price) (models.Price, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.EffectiveFrom.IsZero() {
		p.EffectiveFrom = time.Now().UTC()
	}
	s.st.prices = append(s.st.prices, p)
	return p, nil
}

func (s *MemoryStore) currentPrice() (models.Price, error) {
	if len(s.st.prices) == 0 {
		return models.Price{}, ErrNoPrice
	}
	cur := s.st.prices[0]
	for _, p := range s.st.prices[1:] {
		if !p.EffectiveFrom.Before(cur.EffectiveFrom) {
			cur = p
		}
	}
	return cur, nil
}

func (s *MemoryStore) listPrices(limit int) ([]models.Price, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.Price
	for i := len(s.st.prices) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.st.prices[i])
	}
	return out, nil
}

// --- Pools ---

func (s *MemoryStore) createPool(name, purity string, total decimal.Decimal) (models.Pool, error) {
	now := time.Now().UTC()
	p := models.Pool{
		ID: uuid.NewString(), Name: name, Purity: purity,
		TotalGrams: total, AvailableGrams: total,
		CreatedAt: now, UpdatedAt: now,
	}
	s.st.pools = append(s.st.pools, p)
	return p, nil
}

func (s *MemoryStore) getPool(id string) (models.Pool, error) {
	for _, p := range s.st.pools {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Pool{}, ErrNotFound
}

func (s *MemoryStore) listPools() ([]models.Pool, error) {
	return append([]models.Pool(nil), s.st.pools...), nil
}

func (s *MemoryStore) reservePool(poolID string, grams decimal.Decimal) (models.Pool, error) {
	for i := range s.st.pools {
		p := &s.st.pools[i]
		if poolID != "" && p.ID != poolID {
			continue
		}
		if p.AvailableGrams.GreaterThanOrEqual(grams) {
			p.AvailableGrams = p.AvailableGrams.Sub(grams)
			p.UpdatedAt = time.Now().UTC()
			return *p, nil
		}
		if poolID != "" {
			return models.Pool{}, ErrInsufficientInventory
		}
	}
	if poolID != "" {
		return models.Pool{}, ErrNotFound
	}
	return models.Pool{}, ErrInsufficientInventory
}

func (s *MemoryStore) releasePool(poolID string, grams decimal.Decimal) error {
	if poolID != "" {
		for i := range s.st.pools {
			p := &s.st.pools[i]
			if p.ID == poolID {
				p.AvailableGrams = p.AvailableGrams.Add(grams)
				p.UpdatedAt = time.Now().UTC()
				return nil
			}
		}
		return ErrNotFound
	}

	total := decimal.Zero
	for i := range s.st.pools {
		total = total.Add(s.st.pools[i].AllocatedGrams())
	}
	if total.LessThan(grams) {
		return ErrNotFound
	}

	remaining := grams
	for i := range s.st.pools {
		p := &s.st.pools[i]
		headroom := p.AllocatedGrams()
		if !headroom.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, headroom)
		p.AvailableGrams = p.AvailableGrams.Add(take)
		p.UpdatedAt = time.Now().UTC()
		remaining = remaining.Sub(take)
		if remaining.IsZero() {
			break
		}
	}
	return nil
}

func (s *MemoryStore) topUpPool(poolID string, added decimal.Decimal) (models.Pool, error) {
	for i := range s.st.pools {
		p := &s.st.pools[i]
		if p.ID == poolID {
			p.TotalGrams = p.TotalGrams.Add(added)
			p.AvailableGrams = p.AvailableGrams.Add(added)
			p.UpdatedAt = time.Now().UTC()
			return *p, nil
		}
	}
	return models.Pool{}, ErrNotFound
}

// --- Balances ---

func (s *MemoryStore) getBalance(userID string) (models.Balance, error) {
	b, ok := s.st.balances[userID]
	if !ok {
		return models.Balance{}, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) creditBalance(userID string, grams decimal.Decimal) (models.Balance, error) {
	b, ok := s.st.balances[userID]
	if !ok {
		b = models.Balance{UserID: userID}
	}
	b.OwnedGrams = b.OwnedGrams.Add(grams)
	b.UpdatedAt = time.Now().UTC()
	s.st.balances[userID] = b
	return b, nil
}

func (s *MemoryStore) lockBalance(userID string, grams decimal.Decimal) error {
	b, ok := s.st.balances[userID]
	if !ok || b.AvailableGrams().LessThan(grams) {
		return ErrInsufficientBalance
	}
	b.LockedGrams = b.LockedGrams.Add(grams)
	b.UpdatedAt = time.Now().UTC()
	s.st.balances[userID] = b
	return nil
}

func (s *MemoryStore) unlockBalance(userID string, grams decimal.Decimal) error {
	b, ok := s.st.balances[userID]
	if !ok || b.LockedGrams.LessThan(grams) {
		return ErrInsufficientBalance
	}
	b.LockedGrams = b.LockedGrams.Sub(grams)
	b.UpdatedAt = time.Now().UTC()
	s.st.balances[userID] = b
	return nil
}

func (s *MemoryStore) settleSell(userID string, grams decimal.Decimal) error {
	b, ok := s.st.balances[userID]
	if !ok || b.LockedGrams.LessThan(grams) || b.OwnedGrams.LessThan(grams) {
		return ErrInsufficientBalance
	}
	b.OwnedGrams = b.OwnedGrams.Sub(grams)
	b.LockedGrams = b.LockedGrams.Sub(grams)
	b.UpdatedAt = time.Now().UTC()
	s.st.balances[userID] = b
	return nil
}

// --- Ledger ---

func (s *MemoryStore) createLedgerEntry(e models.LedgerEntry) (models.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.st.ledger = append(s.st.ledger, e)
	return e, nil
}

func (s *MemoryStore) getLedgerEntry(id string) (models.LedgerEntry, error) {
	for _, e := range s.st.ledger {
		if e.ID == id {
			return e, nil
		}
	}
	return models.LedgerEntry{}, ErrNotFound
}

func (s *MemoryStore) listLedgerByUser(userID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.LedgerEntry
	for i := len(s.st.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if s.st.ledger[i].UserID == userID {
			out = append(out, s.st.ledger[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) listLedger(limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.LedgerEntry
	for i := len(s.st.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.st.ledger[i])
	}
	return out, nil
}

func (s *MemoryStore) finalizeLedgerEntry(id string, status models.LedgerStatus) error {
	for i := range s.st.ledger {
		if s.st.ledger[i].ID != id {
			continue
		}
		if s.st.ledger[i].Status.Terminal() {
			return ErrAlreadyFinalized
		}
		s.st.ledger[i].Status = status
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) appendLedgerReference(id, suffix string) error {
	for i := range s.st.ledger {
		if s.st.ledger[i].ID == id {
			s.st.ledger[i].Reference += "_" + suffix
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) findPendingByReference(token string) (models.LedgerEntry, error) {
	if token == "" {
		return models.LedgerEntry{}, ErrNotFound
	}
	for i := len(s.st.ledger) - 1; i >= 0; i-- {
		e := s.st.ledger[i]
		if e.Status == models.LedgerPending && strings.Contains(e.Reference, token) {
			return e, nil
		}
	}
	return models.LedgerEntry{}, ErrNotFound
}

func (s *MemoryStore) findByReference(token string) (models.LedgerEntry, error) {
	if token == "" {
		return models.LedgerEntry{}, ErrNotFound
	}
	for i := len(s.st.ledger) - 1; i >= 0; i-- {
		if strings.Contains(s.st.ledger[i].Reference, token) {
			return s.st.ledger[i], nil
		}
	}
	return models.LedgerEntry{}, ErrNotFound
}

func (s *MemoryStore) findPendingSell(userID string, amountKes decimal.Decimal) (models.LedgerEntry, error) {
	for i := len(s.st.ledger) - 1; i >= 0; i-- {
		e := s.st.ledger[i]
		if e.Kind == models.LedgerSell && e.Status == models.LedgerPending &&
			e.UserID == userID && e.TotalKes.Equal(amountKes) {
			return e, nil
		}
	}
	return models.LedgerEntry{}, ErrNotFound
}

func (s *MemoryStore) listStalePendingBuys(olderThan time.Time) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range s.st.ledger {
		if e.Kind == models.LedgerBuy && e.Status == models.LedgerPending && e.CreatedAt.Before(olderThan) {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Payouts ---

func (s *MemoryStore) createPayout(p models.Payout) (models.Payout, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.st.payouts = append(s.st.payouts, p)
	return p, nil
}

func (s *MemoryStore) getPayout(id string) (models.Payout, error) {
	for _, p := range s.st.payouts {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Payout{}, ErrNotFound
}

func (s *MemoryStore) listPayouts(status models.PayoutStatus, limit int) ([]models.Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.Payout
	for i := len(s.st.payouts) - 1; i >= 0 && len(out) < limit; i-- {
		if status == "" || s.st.payouts[i].Status == status {
			out = append(out, s.st.payouts[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) finalizePayout(id string, status models.PayoutStatus, providerRef, notes string) error {
	for i := range s.st.payouts {
		if s.st.payouts[i].ID != id {
			continue
		}
		if s.st.payouts[i].Status.Terminal() {
			return ErrAlreadyFinalized
		}
		s.st.payouts[i].Status = status
		if providerRef != "" {
			s.st.payouts[i].ProviderRef = providerRef
		}
		if notes != "" {
			s.st.payouts[i].Notes = notes
		}
		return nil
	}
	return ErrNotFound
}

// --- Audit ---

func (s *MemoryStore) createAuditLog(l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	s.st.audits = append(s.st.audits, l)
	return nil
}

// AuditLogs returns a copy of all audit rows (test helper).
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.st.audits...)
}
