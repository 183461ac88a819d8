package services

import (
	"context"
	"errors"
	"testing"

	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/mpesa"
	"github.com/goldvault/backend/internal/store"
)

type payoutEnv struct {
	st      *store.MemoryStore
	trades  *TradeService
	payouts *PayoutService
	pool    models.Pool
	userID  string
}

// newPayoutEnv seeds a user holding 10g (all reserved out of a 10g pool, as
// completed buys would leave it) and a 100/90 price.
func newPayoutEnv(t *testing.T) *payoutEnv {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()

	if _, err := st.SetPrice(ctx, models.Price{
		BuyPricePerGram:  dec("100"),
		SellPricePerGram: dec("90"),
		CreatedBy:        "admin-1",
	}); err != nil {
		t.Fatalf("seed price: %v", err)
	}
	pool, err := st.CreatePool(ctx, "vault-a", "999.9", dec("10"))
	if err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	if _, err := st.ReservePool(ctx, pool.ID, dec("10")); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	if _, err := st.CreditBalance(ctx, "user-1", dec("10")); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	return &payoutEnv{
		st:      st,
		trades:  NewTradeService(st, &mpesa.Stub{}, nil),
		payouts: NewPayoutService(st, nil),
		pool:    pool,
		userID:  "user-1",
	}
}

func (e *payoutEnv) sell(t *testing.T, grams string) models.Payout {
	t.Helper()
	ctx := context.Background()
	if _, err := e.trades.Sell(ctx, e.userID, dec(grams), "0712345678"); err != nil {
		t.Fatalf("sell: %v", err)
	}
	rows, err := e.st.ListPayouts(ctx, models.PayoutPending, 1)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one pending payout, got %v (err %v)", rows, err)
	}
	return rows[0]
}

func TestSellLocksBalance(t *testing.T) {
	env := newPayoutEnv(t)
	ctx := context.Background()

	receipt, err := env.trades.Sell(ctx, env.userID, dec("4"), "0712345678")
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !receipt.TotalKes.Equal(dec("360")) {
		t.Fatalf("amount due = %s, want 360", receipt.TotalKes)
	}

	b, _ := env.st.GetBalance(ctx, env.userID)
	if !b.OwnedGrams.Equal(dec("10")) || !b.LockedGrams.Equal(dec("4")) {
		t.Fatalf("balance = owned %s locked %s, want 10/4", b.OwnedGrams, b.LockedGrams)
	}
	if got := b.AvailableGrams(); !got.Equal(dec("6")) {
		t.Fatalf("available = %s, want 6", got)
	}
}

func TestSellInsufficientBalance(t *testing.T) {
	env := newPayoutEnv(t)
	ctx := context.Background()

	if _, err := env.trades.Sell(ctx, env.userID, dec("11"), "0712345678"); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// Locked grams are not sellable twice.
	if _, err := env.trades.Sell(ctx, env.userID, dec("6"), "0712345678"); err != nil {
		t.Fatalf("first sell: %v", err)
	}
	if _, err := env.trades.Sell(ctx, env.userID, dec("5"), "0712345678"); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestApprovePayoutSettles(t *testing.T) {
	env := newPayoutEnv(t)
	ctx := context.Background()
	p := env.sell(t, "4")

	approved, err := env.payouts.Approve(ctx, p.ID, "admin-1", "MPESA-REF-1", "paid manually")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.PayoutCompleted || approved.ProviderRef != "MPESA-REF-1" {
		t.Fatalf("payout = %+v, want completed with provider ref", approved)
	}

	b, _ := env.st.GetBalance(ctx, env.userID)
	if !b.OwnedGrams.Equal(dec("6")) || !b.LockedGrams.IsZero() {
		t.Fatalf("balance = owned %s locked %s, want 6/0", b.OwnedGrams, b.LockedGrams)
	}

	// The grams flow back into pool inventory.
	pool, _ := env.st.GetPool(ctx, env.pool.ID)
	if !pool.AvailableGrams.Equal(dec("4")) {
		t.Fatalf("pool available = %s, want 4", pool.AvailableGrams)
	}

	entries, _ := env.st.ListLedgerByUser(ctx, env.userID, 10)
	if len(entries) != 1 || entries[0].Status != models.LedgerCompleted {
		t.Fatalf("expected completed sell entry, got %+v", entries)
	}
}

func TestRejectPayoutRestoresLock(t *testing.T) {
	env := newPayoutEnv(t)
	ctx := context.Background()
	p := env.sell(t, "4")

	rejected, err := env.payouts.Reject(ctx, p.ID, "admin-1", "suspicious account")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.PayoutFailed {
		t.Fatalf("status = %s, want failed", rejected.Status)
	}

	b, _ := env.st.GetBalance(ctx, env.userID)
	if !b.OwnedGrams.Equal(dec("10")) || !b.LockedGrams.IsZero() {
		t.Fatalf("balance = owned %s locked %s, want 10/0", b.OwnedGrams, b.LockedGrams)
	}

	// Rejected sells leave pool inventory untouched.
	pool, _ := env.st.GetPool(ctx, env.pool.ID)
	if !pool.AvailableGrams.IsZero() {
		t.Fatalf("pool available = %s, want 0", pool.AvailableGrams)
	}

	entries, _ := env.st.ListLedgerByUser(ctx, env.userID, 10)
	if len(entries) != 1 || entries[0].Status != models.LedgerFailed {
		t.Fatalf("expected failed sell entry, got %+v", entries)
	}
}

func TestApprovePayoutTwice(t *testing.T) {
	env := newPayoutEnv(t)
	ctx := context.Background()
	p := env.sell(t, "4")

	if _, err := env.payouts.Approve(ctx, p.ID, "admin-1", "", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.payouts.Approve(ctx, p.ID, "admin-1", "", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second approve err = %v, want ErrInvalidState", err)
	}
	if _, err := env.payouts.Reject(ctx, p.ID, "admin-1", "late"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("reject after approve err = %v, want ErrInvalidState", err)
	}

	// The double decision must not settle twice.
	b, _ := env.st.GetBalance(ctx, env.userID)
	if !b.OwnedGrams.Equal(dec("6")) {
		t.Fatalf("owned = %s, want 6", b.OwnedGrams)
	}
}

// Holdings bought out of several pools still settle: the release spreads
// across whatever headroom exists instead of demanding one pool big enough.
func TestApproveSellSpanningPools(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	if _, err := st.SetPrice(ctx, models.Price{
		BuyPricePerGram:  dec("100"),
		SellPricePerGram: dec("90"),
		CreatedBy:        "admin-1",
	}); err != nil {
		t.Fatalf("seed price: %v", err)
	}
	first, _ := st.CreatePool(ctx, "vault-a", "999.9", dec("5"))
	second, _ := st.CreatePool(ctx, "vault-b", "999.9", dec("5"))
	for _, id := range []string{first.ID, second.ID} {
		if _, err := st.ReservePool(ctx, id, dec("5")); err != nil {
			t.Fatalf("seed reservation: %v", err)
		}
	}
	if _, err := st.CreditBalance(ctx, "user-1", dec("10")); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	trades := NewTradeService(st, &mpesa.Stub{}, nil)
	payouts := NewPayoutService(st, nil)
	if _, err := trades.Sell(ctx, "user-1", dec("10"), "0712345678"); err != nil {
		t.Fatalf("sell: %v", err)
	}
	rows, _ := st.ListPayouts(ctx, models.PayoutPending, 1)
	if len(rows) != 1 {
		t.Fatalf("expected one pending payout, got %d", len(rows))
	}

	if _, err := payouts.Approve(ctx, rows[0].ID, "admin-1", "", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	b, _ := st.GetBalance(ctx, "user-1")
	if !b.OwnedGrams.IsZero() || !b.LockedGrams.IsZero() {
		t.Fatalf("balance = %+v, want empty", b)
	}
	for _, id := range []string{first.ID, second.ID} {
		p, _ := st.GetPool(ctx, id)
		if !p.AvailableGrams.Equal(dec("5")) {
			t.Fatalf("pool %s available = %s, want 5", p.Name, p.AvailableGrams)
		}
	}
}

func TestSellApproveRoundTripConservesGold(t *testing.T) {
	env := newPayoutEnv(t)
	ctx := context.Background()
	p := env.sell(t, "10")

	if _, err := env.payouts.Approve(ctx, p.ID, "admin-1", "", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	b, _ := env.st.GetBalance(ctx, env.userID)
	pool, _ := env.st.GetPool(ctx, env.pool.ID)
	if !b.OwnedGrams.IsZero() || !b.LockedGrams.IsZero() {
		t.Fatalf("balance = %+v, want empty", b)
	}
	// Everything the user held is back in the pool.
	if !pool.AvailableGrams.Equal(pool.TotalGrams) {
		t.Fatalf("pool = %s/%s, want fully available", pool.AvailableGrams, pool.TotalGrams)
	}
}
