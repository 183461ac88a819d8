package handlers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/api/httpx"
	"github.com/goldvault/backend/internal/services"
)

type PriceHandler struct {
	prices *services.PriceService
}

func NewPriceHandler(prices *services.PriceService) *PriceHandler {
	return &PriceHandler{prices: prices}
}

func (h *PriceHandler) Current(w http.ResponseWriter, r *http.Request) {
	q, err := h.prices.Current(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, q)
}

type setPriceRequest struct {
	BuyPricePerGram  decimal.Decimal `json:"buy_price_per_gram"`
	SellPricePerGram decimal.Decimal `json:"sell_price_per_gram"`
}

func (h *PriceHandler) Set(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req setPriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body", nil)
		return
	}
	p, err := h.prices.Set(r.Context(), uid, req.BuyPricePerGram, req.SellPricePerGram)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *PriceHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.prices.History(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}
