package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/goldvault/backend/internal/metrics"
	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/store"
	"github.com/goldvault/backend/internal/worker"
)

// PayoutService drives the administrator approval flow for sell requests.
// Approving a payout is the moment gold actually leaves the user's balance
// and returns to pool inventory; rejecting restores the lock untouched.
type PayoutService struct {
	st store.Store
	wp *worker.Pool
}

func NewPayoutService(st store.Store, wp *worker.Pool) *PayoutService {
	return &PayoutService{st: st, wp: wp}
}

// Approve settles a pending payout: the locked grams are removed from the
// seller's balance, returned to pool inventory, and the sell ledger entry is
// completed. providerRef records the transfer reference of whatever channel
// the administrator paid through.
func (s *PayoutService) Approve(ctx context.Context, payoutID, adminID, providerRef, notes string) (models.Payout, error) {
	p, err := s.st.GetPayout(ctx, payoutID)
	if err != nil {
		return models.Payout{}, err
	}
	if p.Status.Terminal() {
		return models.Payout{}, ErrInvalidState
	}

	entry, err := s.st.FindPendingSell(ctx, p.UserID, p.AmountKes)
	if err != nil {
		return models.Payout{}, err
	}

	err = s.st.Atomic(ctx, func(tx store.Store) error {
		if err := tx.FinalizePayout(ctx, p.ID, models.PayoutCompleted, providerRef, notes); err != nil {
			return err
		}
		if err := tx.FinalizeLedgerEntry(ctx, entry.ID, models.LedgerCompleted); err != nil {
			return err
		}
		if err := tx.SettleSell(ctx, p.UserID, entry.Grams); err != nil {
			return err
		}
		// Sell entries normally carry no pool reference; the grams are
		// spread back across pools with allocation headroom.
		poolID := ""
		if entry.PoolID != nil {
			poolID = *entry.PoolID
		}
		return tx.ReleasePool(ctx, poolID, entry.Grams)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyFinalized) {
			return models.Payout{}, ErrInvalidState
		}
		return models.Payout{}, err
	}

	metrics.PayoutsTotal.WithLabelValues("approved").Inc()
	s.audit(p.ID, adminID, "approved", map[string]any{
		"trade_id": entry.ID, "amount_kes": p.AmountKes.String(), "provider_ref": providerRef,
	})
	slog.Info("payout approved", "payout_id", p.ID, "admin_id", adminID, "grams", entry.Grams.String())

	p.Status = models.PayoutCompleted
	p.ProviderRef = providerRef
	p.Notes = notes
	return p, nil
}

// Reject fails a pending payout and its sell entry and hands the locked
// grams back to the seller.
func (s *PayoutService) Reject(ctx context.Context, payoutID, adminID, reason string) (models.Payout, error) {
	p, err := s.st.GetPayout(ctx, payoutID)
	if err != nil {
		return models.Payout{}, err
	}
	if p.Status.Terminal() {
		return models.Payout{}, ErrInvalidState
	}

	entry, err := s.st.FindPendingSell(ctx, p.UserID, p.AmountKes)
	if err != nil {
		return models.Payout{}, err
	}

	err = s.st.Atomic(ctx, func(tx store.Store) error {
		if err := tx.FinalizePayout(ctx, p.ID, models.PayoutFailed, "", reason); err != nil {
			return err
		}
		if err := tx.FinalizeLedgerEntry(ctx, entry.ID, models.LedgerFailed); err != nil {
			return err
		}
		return tx.UnlockBalance(ctx, p.UserID, entry.Grams)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyFinalized) {
			return models.Payout{}, ErrInvalidState
		}
		return models.Payout{}, err
	}

	metrics.PayoutsTotal.WithLabelValues("rejected").Inc()
	s.audit(p.ID, adminID, "rejected", map[string]any{
		"trade_id": entry.ID, "reason": reason,
	})
	slog.Info("payout rejected", "payout_id", p.ID, "admin_id", adminID)

	p.Status = models.PayoutFailed
	p.Notes = reason
	return p, nil
}

// Pending lists payouts awaiting an administrator decision.
func (s *PayoutService) Pending(ctx context.Context) ([]models.Payout, error) {
	return s.st.ListPayouts(ctx, models.PayoutPending, 0)
}

// List returns payouts in any status, newest first.
func (s *PayoutService) List(ctx context.Context, status models.PayoutStatus, limit int) ([]models.Payout, error) {
	return s.st.ListPayouts(ctx, status, limit)
}

func (s *PayoutService) audit(payoutID, adminID, action string, details map[string]any) {
	details["admin_id"] = adminID
	l := models.AuditLog{
		EntityType: "payout",
		EntityID:   &payoutID,
		Action:     action,
		Details:    details,
	}
	if s.wp != nil {
		s.wp.Submit(func() { _ = s.st.CreateAuditLog(context.Background(), l) })
		return
	}
	_ = s.st.CreateAuditLog(context.Background(), l)
}
