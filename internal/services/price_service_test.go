package services

import (
	"context"
	"errors"
	"testing"

	"github.com/goldvault/backend/internal/store"
)

func TestSetPriceRejectsInvertedSpread(t *testing.T) {
	svc := NewPriceService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	if _, err := svc.Set(ctx, "admin-1", dec("100"), dec("100")); !errors.Is(err, ErrValidation) {
		t.Fatalf("sell == buy err = %v, want ErrValidation", err)
	}
	if _, err := svc.Set(ctx, "admin-1", dec("100"), dec("110")); !errors.Is(err, ErrValidation) {
		t.Fatalf("sell > buy err = %v, want ErrValidation", err)
	}
	if _, err := svc.Set(ctx, "admin-1", dec("0"), dec("-1")); !errors.Is(err, ErrValidation) {
		t.Fatalf("non-positive err = %v, want ErrValidation", err)
	}
}

func TestCurrentQuoteSpread(t *testing.T) {
	svc := NewPriceService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	if _, err := svc.Current(ctx); !errors.Is(err, store.ErrNoPrice) {
		t.Fatalf("no price err = %v, want ErrNoPrice", err)
	}

	if _, err := svc.Set(ctx, "admin-1", dec("100"), dec("90")); err != nil {
		t.Fatalf("set: %v", err)
	}
	q, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !q.SpreadPerGram.Equal(dec("10")) {
		t.Fatalf("spread = %s, want 10", q.SpreadPerGram)
	}
	if !q.SpreadPct.Equal(dec("10")) {
		t.Fatalf("spread pct = %s, want 10", q.SpreadPct)
	}
}

func TestPriceHistoryNewestFirst(t *testing.T) {
	svc := NewPriceService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	if _, err := svc.Set(ctx, "admin-1", dec("100"), dec("90")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := svc.Set(ctx, "admin-1", dec("105"), dec("95")); err != nil {
		t.Fatalf("set: %v", err)
	}

	rows, err := svc.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if !rows[0].BuyPricePerGram.Equal(dec("105")) {
		t.Fatalf("latest buy = %s, want 105", rows[0].BuyPricePerGram)
	}

	// Publishing appended; it never rewrote the older row.
	if !rows[1].BuyPricePerGram.Equal(dec("100")) {
		t.Fatalf("older buy = %s, want 100", rows[1].BuyPricePerGram)
	}
}
