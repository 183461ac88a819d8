package handlers

import (
	"errors"
	"net/http"

	"github.com/goldvault/backend/internal/api/httpx"
	"github.com/goldvault/backend/internal/middleware"
	"github.com/goldvault/backend/internal/mpesa"
	"github.com/goldvault/backend/internal/services"
	"github.com/goldvault/backend/internal/store"
)

// writeServiceError maps service and store errors onto HTTP statuses. The
// default is 500 so an unmapped error never leaks as a misleading 4xx.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
	case errors.Is(err, store.ErrInsufficientInventory):
		httpx.WriteError(w, http.StatusBadRequest, "insufficient_inventory", err.Error(), nil)
	case errors.Is(err, store.ErrInsufficientBalance):
		httpx.WriteError(w, http.StatusBadRequest, "insufficient_balance", err.Error(), nil)
	case errors.Is(err, store.ErrNoPrice):
		httpx.WriteError(w, http.StatusBadRequest, "no_price", err.Error(), nil)
	case errors.Is(err, store.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusConflict, "duplicate_email", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, store.ErrAlreadyFinalized):
		httpx.WriteError(w, http.StatusConflict, "invalid_state", err.Error(), nil)
	case errors.Is(err, mpesa.ErrPaymentInitiation):
		httpx.WriteError(w, http.StatusBadGateway, "payment_initiation_failed", err.Error(), nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

// mustUser pulls the authenticated user id out of the context; Auth
// middleware guarantees it is present on protected routes.
func mustUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
	}
	return uid, ok
}

func isAdmin(r *http.Request) bool {
	role, ok := middleware.Role(r.Context())
	return ok && role == "admin"
}
