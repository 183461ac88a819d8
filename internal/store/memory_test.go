package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestReservePoolGuards(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	p, err := st.CreatePool(ctx, "vault-a", "999.9", dec("10"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := st.ReservePool(ctx, p.ID, dec("11")); !errors.Is(err, ErrInsufficientInventory) {
		t.Fatalf("overshoot err = %v, want ErrInsufficientInventory", err)
	}
	if _, err := st.ReservePool(ctx, "no-such-pool", dec("1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing pool err = %v, want ErrNotFound", err)
	}

	got, err := st.ReservePool(ctx, p.ID, dec("10"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !got.AvailableGrams.IsZero() {
		t.Fatalf("available = %s, want 0", got.AvailableGrams)
	}
	if _, err := st.ReservePool(ctx, p.ID, dec("0.000001")); !errors.Is(err, ErrInsufficientInventory) {
		t.Fatalf("drained pool err = %v, want ErrInsufficientInventory", err)
	}
}

func TestReservePoolPicksOldestFirst(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	older, _ := st.CreatePool(ctx, "vault-a", "999.9", dec("5"))
	newer, _ := st.CreatePool(ctx, "vault-b", "999.9", dec("5"))

	got, err := st.ReservePool(ctx, "", dec("3"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got.ID != older.ID {
		t.Fatalf("reserved from %s, want oldest pool %s", got.Name, older.Name)
	}

	// Once the oldest cannot serve, the next one does.
	got, err = st.ReservePool(ctx, "", dec("4"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got.ID != newer.ID {
		t.Fatalf("reserved from %s, want %s", got.Name, newer.Name)
	}
}

func TestReleasePoolNeedsHeadroom(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	p, _ := st.CreatePool(ctx, "vault-a", "999.9", dec("10"))

	// Nothing allocated anywhere: an unrouted release has no home.
	if err := st.ReleasePool(ctx, "", dec("1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if _, err := st.ReservePool(ctx, p.ID, dec("4")); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := st.ReleasePool(ctx, "", dec("4")); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := st.GetPool(ctx, p.ID)
	if !got.AvailableGrams.Equal(dec("10")) {
		t.Fatalf("available = %s, want 10", got.AvailableGrams)
	}
}

// An unrouted release larger than any single pool's headroom splits across
// pools, oldest first.
func TestReleasePoolSpreadsAcrossPools(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	older, _ := st.CreatePool(ctx, "vault-a", "999.9", dec("5"))
	newer, _ := st.CreatePool(ctx, "vault-b", "999.9", dec("5"))

	if _, err := st.ReservePool(ctx, older.ID, dec("5")); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := st.ReservePool(ctx, newer.ID, dec("2")); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := st.ReleasePool(ctx, "", dec("6")); err != nil {
		t.Fatalf("release: %v", err)
	}
	a, _ := st.GetPool(ctx, older.ID)
	b, _ := st.GetPool(ctx, newer.ID)
	if !a.AvailableGrams.Equal(dec("5")) {
		t.Fatalf("oldest pool available = %s, want 5 (filled first)", a.AvailableGrams)
	}
	if !b.AvailableGrams.Equal(dec("4")) {
		t.Fatalf("newer pool available = %s, want 4", b.AvailableGrams)
	}

	// Only 1g of headroom remains; a 2g release cannot be absorbed and
	// must not partially apply.
	if err := st.ReleasePool(ctx, "", dec("2")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	b, _ = st.GetPool(ctx, newer.ID)
	if !b.AvailableGrams.Equal(dec("4")) {
		t.Fatalf("newer pool available = %s, want 4 untouched", b.AvailableGrams)
	}
}

func TestBalanceLockUnlockSettle(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.LockBalance(ctx, "u1", dec("1")); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("lock on empty err = %v, want ErrInsufficientBalance", err)
	}

	if _, err := st.CreditBalance(ctx, "u1", dec("10")); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := st.LockBalance(ctx, "u1", dec("4")); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := st.LockBalance(ctx, "u1", dec("7")); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overlock err = %v, want ErrInsufficientBalance", err)
	}

	if err := st.SettleSell(ctx, "u1", dec("4")); err != nil {
		t.Fatalf("settle: %v", err)
	}
	b, _ := st.GetBalance(ctx, "u1")
	if !b.OwnedGrams.Equal(dec("6")) || !b.LockedGrams.IsZero() {
		t.Fatalf("balance = owned %s locked %s, want 6/0", b.OwnedGrams, b.LockedGrams)
	}

	// Nothing locked anymore, so neither settle nor unlock may fire.
	if err := st.SettleSell(ctx, "u1", dec("1")); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("settle unlocked err = %v, want ErrInsufficientBalance", err)
	}
	if err := st.UnlockBalance(ctx, "u1", dec("1")); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("unlock unlocked err = %v, want ErrInsufficientBalance", err)
	}
}

func TestFinalizeLedgerReplay(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	e, err := st.CreateLedgerEntry(ctx, models.LedgerEntry{
		UserID: "u1", Kind: models.LedgerBuy,
		Grams: dec("5"), PricePerGram: dec("100"), TotalKes: dec("500"),
		Reference: "buy_1700000000_abcd1234", Status: models.LedgerPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.FinalizeLedgerEntry(ctx, e.ID, models.LedgerCompleted); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := st.FinalizeLedgerEntry(ctx, e.ID, models.LedgerFailed); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("replay err = %v, want ErrAlreadyFinalized", err)
	}

	got, _ := st.GetLedgerEntry(ctx, e.ID)
	if got.Status != models.LedgerCompleted {
		t.Fatalf("status = %s, the replay must not have flipped it", got.Status)
	}

	if err := st.FinalizeLedgerEntry(ctx, "no-such-entry", models.LedgerFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing entry err = %v, want ErrNotFound", err)
	}
}

func TestFindByReferenceTokens(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	e, _ := st.CreateLedgerEntry(ctx, models.LedgerEntry{
		UserID: "u1", Kind: models.LedgerBuy,
		Grams: dec("5"), PricePerGram: dec("100"), TotalKes: dec("500"),
		Reference: "buy_1700000000_abcd1234", Status: models.LedgerPending,
	})
	if err := st.AppendLedgerReference(ctx, e.ID, "ws_CO_191220191020363925"); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := st.FindPendingByReference(ctx, "ws_CO_191220191020363925")
	if err != nil || got.ID != e.ID {
		t.Fatalf("find by checkout id: %v / %+v", err, got)
	}
	if _, err := st.FindPendingByReference(ctx, "ws_CO_other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token err = %v, want ErrNotFound", err)
	}

	// After finalization only the any-status lookup still sees it.
	_ = st.FinalizeLedgerEntry(ctx, e.ID, models.LedgerCompleted)
	if _, err := st.FindPendingByReference(ctx, "ws_CO_191220191020363925"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pending lookup err = %v, want ErrNotFound", err)
	}
	if _, err := st.FindByReference(ctx, "ws_CO_191220191020363925"); err != nil {
		t.Fatalf("any-status lookup: %v", err)
	}
}

func TestAtomicRollsBackOnError(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	p, _ := st.CreatePool(ctx, "vault-a", "999.9", dec("10"))

	boom := errors.New("boom")
	err := st.Atomic(ctx, func(tx Store) error {
		if _, err := tx.ReservePool(ctx, p.ID, dec("5")); err != nil {
			return err
		}
		if _, err := tx.CreditBalance(ctx, "u1", dec("5")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, _ := st.GetPool(ctx, p.ID)
	if !got.AvailableGrams.Equal(dec("10")) {
		t.Fatalf("available = %s, rollback must restore 10", got.AvailableGrams)
	}
	if _, err := st.GetBalance(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("balance err = %v, rollback must drop the row", err)
	}
}

func TestAtomicCannotNest(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	err := st.Atomic(ctx, func(tx Store) error {
		return tx.Atomic(ctx, func(Store) error { return nil })
	})
	if err == nil {
		t.Fatal("nested Atomic must fail")
	}
}

func TestListStalePendingBuys(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.CreateLedgerEntry(ctx, models.LedgerEntry{
		UserID: "u1", Kind: models.LedgerBuy,
		Grams: dec("1"), PricePerGram: dec("100"), TotalKes: dec("100"),
		Reference: "buy_1700000000_aaaa1111", Status: models.LedgerPending,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Sells never expire, whatever their age.
	if _, err := st.CreateLedgerEntry(ctx, models.LedgerEntry{
		UserID: "u1", Kind: models.LedgerSell,
		Grams: dec("1"), PricePerGram: dec("90"), TotalKes: dec("90"),
		Reference: "sell_1700000000_bbbb2222", Status: models.LedgerPending,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale, err := st.ListStalePendingBuys(ctx, time.Now().UTC().Add(time.Second))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stale) != 1 || stale[0].Kind != models.LedgerBuy {
		t.Fatalf("stale = %+v, want the single buy", stale)
	}

	stale, _ = st.ListStalePendingBuys(ctx, time.Now().UTC().Add(-time.Hour))
	if len(stale) != 0 {
		t.Fatalf("stale = %+v, want none for an old cutoff", stale)
	}
}
