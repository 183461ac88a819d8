package handlers

import (
	"net/http"

	"github.com/goldvault/backend/internal/api/httpx"
	"github.com/goldvault/backend/internal/api/validate"
	"github.com/goldvault/backend/internal/services"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body", nil)
		return
	}
	var errs validate.Errs
	if ef := validate.Required("email", req.Email); ef != nil {
		errs = append(errs, *ef)
	}
	if ef := validate.Required("password", req.Password); ef != nil {
		errs = append(errs, *ef)
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error(), errs)
		return
	}

	res, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body", nil)
		return
	}
	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_json", "refresh_token is required", nil)
		return
	}
	res, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
