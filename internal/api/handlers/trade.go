package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/api/httpx"
	"github.com/goldvault/backend/internal/services"
)

type TradeHandler struct {
	trades *services.TradeService
}

func NewTradeHandler(trades *services.TradeService) *TradeHandler {
	return &TradeHandler{trades: trades}
}

type buyRequest struct {
	AmountKes   decimal.Decimal `json:"amount_kes"`
	PhoneNumber string          `json:"phone_number"`
}

func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body", nil)
		return
	}
	receipt, err := h.trades.Buy(r.Context(), uid, req.AmountKes, req.PhoneNumber)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, receipt)
}

type sellRequest struct {
	Grams       decimal.Decimal `json:"grams"`
	PayoutPhone string          `json:"payout_phone"`
}

func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req sellRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body", nil)
		return
	}
	receipt, err := h.trades.Sell(r.Context(), uid, req.Grams, req.PayoutPhone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, receipt)
}

// Status returns one trade. Users may only see their own entries; admins see
// everything.
func (h *TradeHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUser(w, r)
	if !ok {
		return
	}
	entry, err := h.trades.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entry.UserID != uid && !isAdmin(r) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}
