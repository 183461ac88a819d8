package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/goldvault/backend/internal/api/httpx"
	"github.com/goldvault/backend/internal/metrics"
	"github.com/goldvault/backend/internal/mpesa"
	"github.com/goldvault/backend/internal/services"
)

// CallbackHandler receives asynchronous payment confirmations from the
// gateway.
type CallbackHandler struct {
	trades *services.TradeService
}

func NewCallbackHandler(trades *services.TradeService) *CallbackHandler {
	return &CallbackHandler{trades: trades}
}

// Handle always acknowledges with ResultCode 0, whatever happens internally.
// Returning an error status would make the gateway retry a callback we have
// already durably classified (applied, replayed or dead-lettered).
func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var env mpesa.CallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		slog.Warn("undecodable mpesa callback", "err", err)
		metrics.CallbacksTotal.WithLabelValues("error").Inc()
		httpx.WriteJSON(w, http.StatusOK, mpesa.Accepted())
		return
	}

	if err := h.trades.Reconcile(r.Context(), env.Result()); err != nil {
		slog.Info("callback not applied", "err", err,
			"checkout_request_id", env.Body.STKCallback.CheckoutRequestID)
	}
	httpx.WriteJSON(w, http.StatusOK, mpesa.Accepted())
}
