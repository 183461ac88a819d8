package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/api/httpx"
	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/services"
	"github.com/goldvault/backend/internal/store"
)

// AdminHandler groups the operator endpoints: pool management, payout
// approval and system-wide listings.
type AdminHandler struct {
	pools   *services.PoolService
	payouts *services.PayoutService
	users   *services.UserService
	st      store.Store
}

func NewAdminHandler(pools *services.PoolService, payouts *services.PayoutService, users *services.UserService, st store.Store) *AdminHandler {
	return &AdminHandler{pools: pools, payouts: payouts, users: users, st: st}
}

type createPoolRequest struct {
	Name       string          `json:"name"`
	Purity     string          `json:"purity"`
	TotalGrams decimal.Decimal `json:"total_grams"`
}

func (h *AdminHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body", nil)
		return
	}
	p, err := h.pools.Create(r.Context(), req.Name, req.Purity, req.TotalGrams)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.pools.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pools)
}

func (h *AdminHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	p, err := h.pools.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) PoolStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pools.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) TopUpPool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Grams decimal.Decimal `json:"grams"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body", nil)
		return
	}
	p, err := h.pools.TopUp(r.Context(), chi.URLParam(r, "id"), req.Grams)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) PendingPayouts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.payouts.Pending(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

func (h *AdminHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.payouts.List(r.Context(), models.PayoutStatus(r.URL.Query().Get("status")), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

type payoutDecisionRequest struct {
	ProviderRef string `json:"provider_ref"`
	Notes       string `json:"notes"`
	Reason      string `json:"reason"`
}

func (h *AdminHandler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req payoutDecisionRequest
	_ = httpx.DecodeJSON(r, &req) // body optional
	p, err := h.payouts.Approve(r.Context(), chi.URLParam(r, "id"), uid, req.ProviderRef, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req payoutDecisionRequest
	_ = httpx.DecodeJSON(r, &req)
	p, err := h.payouts.Reject(r.Context(), chi.URLParam(r, "id"), uid, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

// ListLedger is the system-wide trade listing, newest first.
func (h *AdminHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := h.st.ListLedger(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}
