package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/metrics"
	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/mpesa"
	"github.com/goldvault/backend/internal/store"
	"github.com/goldvault/backend/internal/worker"
)

// TradeService is the settlement engine: it orchestrates pool reservations,
// balance locks, ledger writes and payout creation for the buy and sell
// flows, and reconciles asynchronous gateway confirmations back onto
// pending ledger entries.
//
// Every multi-row mutation runs inside store.Atomic, so a partially applied
// settlement step can never be observed or persisted.
type TradeService struct {
	st store.Store
	gw mpesa.Gateway
	wp *worker.Pool
}

func NewTradeService(st store.Store, gw mpesa.Gateway, wp *worker.Pool) *TradeService {
	return &TradeService{st: st, gw: gw, wp: wp}
}

// TradeReceipt is returned to the caller of a buy or sell; for buys it holds
// what is needed to await the payment prompt.
type TradeReceipt struct {
	TradeID           string              `json:"trade_id"`
	Kind              models.LedgerKind   `json:"type"`
	Grams             decimal.Decimal     `json:"grams"`
	PricePerGram      decimal.Decimal     `json:"price_per_gram"`
	TotalKes          decimal.Decimal     `json:"total_kes"`
	Reference         string              `json:"reference"`
	CheckoutRequestID string              `json:"checkout_request_id,omitempty"`
	Status            models.LedgerStatus `json:"status"`
	Message           string              `json:"message"`
}

func newReference(kind models.LedgerKind) string {
	return fmt.Sprintf("%s_%d_%s", kind, time.Now().Unix(), uuid.NewString()[:8])
}

// Buy converts amountKes into grams at the current buy price, reserves the
// grams from a pool, writes a pending ledger entry and pushes a payment
// prompt to the buyer's phone. The grams leave pool availability now and
// come back only if the payment fails or expires.
func (s *TradeService) Buy(ctx context.Context, userID string, amountKes decimal.Decimal, phone string) (TradeReceipt, error) {
	if !amountKes.IsPositive() {
		return TradeReceipt{}, invalid("amount_kes must be positive")
	}
	if phone == "" {
		return TradeReceipt{}, invalid("phone_number is required")
	}

	price, err := s.st.CurrentPrice(ctx)
	if err != nil {
		return TradeReceipt{}, err
	}
	grams := amountKes.Div(price.BuyPricePerGram)
	reference := newReference(models.LedgerBuy)

	var entry models.LedgerEntry
	var pool models.Pool
	err = s.st.Atomic(ctx, func(tx store.Store) error {
		var err error
		pool, err = tx.ReservePool(ctx, "", grams)
		if err != nil {
			return err
		}
		poolID := pool.ID
		entry, err = tx.CreateLedgerEntry(ctx, models.LedgerEntry{
			UserID:       userID,
			Kind:         models.LedgerBuy,
			Grams:        grams,
			PricePerGram: price.BuyPricePerGram,
			TotalKes:     amountKes,
			PoolID:       &poolID,
			Reference:    reference,
			Status:       models.LedgerPending,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientInventory) {
			metrics.ReservationConflicts.Inc()
		}
		metrics.TradesFailed.Inc()
		return TradeReceipt{}, err
	}

	resp, err := s.gw.RequestPayment(ctx, mpesa.PaymentRequest{
		PhoneNumber:      phone,
		AmountKes:        amountKes,
		AccountReference: reference,
		Description:      fmt.Sprintf("Buy %sg gold", grams.StringFixed(6)),
	})
	if err != nil {
		// Compensate: the reservation must not leak when the push-payment
		// request itself failed synchronously.
		cerr := s.st.Atomic(ctx, func(tx store.Store) error {
			if err := tx.FinalizeLedgerEntry(ctx, entry.ID, models.LedgerFailed); err != nil {
				return err
			}
			return tx.ReleasePool(ctx, pool.ID, grams)
		})
		if cerr != nil {
			slog.Error("buy compensation failed", "trade_id", entry.ID, "err", cerr)
		}
		metrics.TradesFailed.Inc()
		s.audit("ledger", entry.ID, "payment_init_failed", map[string]any{"reference": reference})
		return TradeReceipt{}, err
	}

	// Store the gateway's checkout id inside the reference so the callback
	// can be matched back unambiguously.
	if err := s.st.AppendLedgerReference(ctx, entry.ID, resp.CheckoutRequestID); err != nil {
		slog.Error("append checkout id", "trade_id", entry.ID, "err", err)
	}

	metrics.TradesTotal.WithLabelValues(string(models.LedgerBuy)).Inc()
	s.audit("ledger", entry.ID, "created", map[string]any{
		"kind": "buy", "grams": grams.String(), "pool_id": pool.ID,
	})

	msg := resp.CustomerMessage
	if msg == "" {
		msg = "Check your phone for M-Pesa prompt"
	}
	return TradeReceipt{
		TradeID:           entry.ID,
		Kind:              models.LedgerBuy,
		Grams:             grams,
		PricePerGram:      price.BuyPricePerGram,
		TotalKes:          amountKes,
		Reference:         reference,
		CheckoutRequestID: resp.CheckoutRequestID,
		Status:            models.LedgerPending,
		Message:           msg,
	}, nil
}

// Sell locks grams of the user's balance, writes a pending sell entry and a
// pending payout. Money moves only when an administrator approves the
// payout.
func (s *TradeService) Sell(ctx context.Context, userID string, grams decimal.Decimal, payoutPhone string) (TradeReceipt, error) {
	if !grams.IsPositive() {
		return TradeReceipt{}, invalid("grams must be positive")
	}
	if payoutPhone == "" {
		return TradeReceipt{}, invalid("payout_phone is required")
	}

	price, err := s.st.CurrentPrice(ctx)
	if err != nil {
		return TradeReceipt{}, err
	}
	amountDue := grams.Mul(price.SellPricePerGram)

	// Read-only pre-check; the atomic lock below is authoritative.
	bal, err := s.st.GetBalance(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return TradeReceipt{}, store.ErrInsufficientBalance
	case err != nil:
		return TradeReceipt{}, err
	case bal.AvailableGrams().LessThan(grams):
		return TradeReceipt{}, store.ErrInsufficientBalance
	}

	reference := newReference(models.LedgerSell)
	var entry models.LedgerEntry
	err = s.st.Atomic(ctx, func(tx store.Store) error {
		if err := tx.LockBalance(ctx, userID, grams); err != nil {
			return err
		}
		var err error
		entry, err = tx.CreateLedgerEntry(ctx, models.LedgerEntry{
			UserID:       userID,
			Kind:         models.LedgerSell,
			Grams:        grams,
			PricePerGram: price.SellPricePerGram,
			TotalKes:     amountDue,
			Reference:    reference,
			Status:       models.LedgerPending,
		})
		if err != nil {
			return err
		}
		_, err = tx.CreatePayout(ctx, models.Payout{
			UserID:    userID,
			AmountKes: amountDue,
			Phone:     payoutPhone,
			Status:    models.PayoutPending,
		})
		return err
	})
	if err != nil {
		metrics.TradesFailed.Inc()
		return TradeReceipt{}, err
	}

	metrics.TradesTotal.WithLabelValues(string(models.LedgerSell)).Inc()
	s.audit("ledger", entry.ID, "created", map[string]any{
		"kind": "sell", "grams": grams.String(), "amount_kes": amountDue.String(),
	})

	return TradeReceipt{
		TradeID:      entry.ID,
		Kind:         models.LedgerSell,
		Grams:        grams,
		PricePerGram: price.SellPricePerGram,
		TotalKes:     amountDue,
		Reference:    reference,
		Status:       models.LedgerPending,
		Message:      "Sell request submitted. Payout will be processed within 24 hours.",
	}, nil
}

// Status returns a trade by id.
func (s *TradeService) Status(ctx context.Context, id string) (models.LedgerEntry, error) {
	return s.st.GetLedgerEntry(ctx, id)
}

// Reconcile applies an asynchronous gateway confirmation to its pending
// ledger entry. The error return is for logging and tests only — the HTTP
// callback handler always acknowledges success toward the gateway.
func (s *TradeService) Reconcile(ctx context.Context, res mpesa.CallbackResult) error {
	entry, err := s.findPending(ctx, res)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyFinalized) {
			metrics.CallbacksTotal.WithLabelValues("replay").Inc()
			return err
		}
		metrics.CallbacksTotal.WithLabelValues("dead_letter").Inc()
		s.deadLetter(ctx, res)
		return err
	}

	if res.Success {
		err = s.st.Atomic(ctx, func(tx store.Store) error {
			if err := tx.FinalizeLedgerEntry(ctx, entry.ID, models.LedgerCompleted); err != nil {
				return err
			}
			if res.ReceiptNumber != "" {
				if err := tx.AppendLedgerReference(ctx, entry.ID, res.ReceiptNumber); err != nil {
					return err
				}
			}
			_, err := tx.CreditBalance(ctx, entry.UserID, entry.Grams)
			return err
		})
		if err == nil {
			metrics.CallbacksTotal.WithLabelValues("completed").Inc()
			s.audit("ledger", entry.ID, "completed", map[string]any{"receipt": res.ReceiptNumber})
			slog.Info("buy completed", "trade_id", entry.ID, "user_id", entry.UserID, "grams", entry.Grams.String())
		}
		return err
	}

	err = s.st.Atomic(ctx, func(tx store.Store) error {
		if err := tx.FinalizeLedgerEntry(ctx, entry.ID, models.LedgerFailed); err != nil {
			return err
		}
		if entry.PoolID != nil {
			return tx.ReleasePool(ctx, *entry.PoolID, entry.Grams)
		}
		return nil
	})
	if err == nil {
		metrics.CallbacksTotal.WithLabelValues("failed").Inc()
		s.audit("ledger", entry.ID, "failed", map[string]any{
			"result_code": res.ResultCode, "result_desc": res.ResultDesc,
		})
		slog.Info("buy failed", "trade_id", entry.ID, "result_code", res.ResultCode)
	}
	return err
}

// findPending matches a confirmation to its pending entry via the checkout
// id (unique per initiation), falling back to the merchant request id. A hit
// on a terminal entry is a replay, not an unknown event.
func (s *TradeService) findPending(ctx context.Context, res mpesa.CallbackResult) (models.LedgerEntry, error) {
	for _, token := range []string{res.CheckoutRequestID, res.MerchantRequestID} {
		if token == "" {
			continue
		}
		if entry, err := s.st.FindPendingByReference(ctx, token); err == nil {
			return entry, nil
		}
		if _, err := s.st.FindByReference(ctx, token); err == nil {
			return models.LedgerEntry{}, store.ErrAlreadyFinalized
		}
	}
	return models.LedgerEntry{}, store.ErrNotFound
}

// deadLetter records an unmatched callback for offline inspection instead of
// only logging it.
func (s *TradeService) deadLetter(ctx context.Context, res mpesa.CallbackResult) {
	slog.Warn("no matching ledger entry for callback",
		"checkout_request_id", res.CheckoutRequestID,
		"merchant_request_id", res.MerchantRequestID,
		"result_code", res.ResultCode,
	)
	_ = s.st.CreateAuditLog(ctx, models.AuditLog{
		EntityType: "mpesa_callback",
		Action:     "dead_letter",
		Details: map[string]any{
			"checkout_request_id": res.CheckoutRequestID,
			"merchant_request_id": res.MerchantRequestID,
			"result_code":         res.ResultCode,
			"result_desc":         res.ResultDesc,
			"amount_kes":          res.AmountKes.String(),
		},
	})
}

// ExpireStaleBuys fails pending buys older than maxAge and releases their
// reservations. Returns how many entries were expired.
func (s *TradeService) ExpireStaleBuys(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.st.ListStalePendingBuys(ctx, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, entry := range stale {
		entry := entry
		err := s.st.Atomic(ctx, func(tx store.Store) error {
			if err := tx.FinalizeLedgerEntry(ctx, entry.ID, models.LedgerFailed); err != nil {
				return err
			}
			if entry.PoolID != nil {
				return tx.ReleasePool(ctx, *entry.PoolID, entry.Grams)
			}
			return nil
		})
		switch {
		case err == nil:
			expired++
			metrics.SweepExpiredTotal.Inc()
			s.audit("ledger", entry.ID, "expired", map[string]any{"reference": entry.Reference})
		case errors.Is(err, store.ErrAlreadyFinalized):
			// A confirmation raced the sweep and won; nothing to do.
		default:
			return expired, err
		}
	}
	return expired, nil
}

// RunExpirySweep blocks, expiring stale buys every interval until ctx is
// done. Callers run it in a goroutine.
func (s *TradeService) RunExpirySweep(ctx context.Context, interval, maxAge time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := s.ExpireStaleBuys(ctx, maxAge); err != nil {
				slog.Error("expiry sweep", "err", err)
			} else if n > 0 {
				slog.Info("expired stale pending buys", "count", n)
			}
		}
	}
}

func (s *TradeService) audit(entityType, entityID, action string, details map[string]any) {
	l := models.AuditLog{
		EntityType: entityType,
		EntityID:   &entityID,
		Action:     action,
		Details:    details,
	}
	if s.wp != nil {
		s.wp.Submit(func() { _ = s.st.CreateAuditLog(context.Background(), l) })
		return
	}
	_ = s.st.CreateAuditLog(context.Background(), l)
}
