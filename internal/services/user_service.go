package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goldvault/backend/internal/auth"
	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/store"
)

// UserService handles registration, login and per-user account views.
type UserService struct {
	st store.Store
	tm *auth.TokenManager
}

func NewUserService(st store.Store, tm *auth.TokenManager) *UserService {
	return &UserService{st: st, tm: tm}
}

// AuthResult is what a successful register or login returns.
type AuthResult struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// Register creates an account and signs the first token pair. Email is
// stored lowercased so duplicate checks are case-insensitive.
func (s *UserService) Register(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u := models.User{Email: email, Role: models.RoleUser}
	if err := u.Validate(); err != nil {
		return AuthResult{}, invalid("%s", err)
	}
	if len(password) < 8 {
		return AuthResult{}, invalid("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return AuthResult{}, err
	}
	created, err := s.st.CreateUser(ctx, email, hash, models.RoleUser)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(created)
}

// Login verifies credentials. The error is identical whether the email is
// unknown or the password is wrong.
func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.st.GetUserByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return AuthResult{}, ErrInvalidCredentials
	}
	u, err := s.st.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *UserService) issue(u models.User) (AuthResult, error) {
	access, refresh, exp, err := s.tm.GeneratePair(u.ID, u.Role)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (models.User, error) {
	return s.st.GetUserByID(ctx, userID)
}

// Balance returns the user's holdings; users who never bought get a zero
// balance, not a 404.
func (s *UserService) Balance(ctx context.Context, userID string) (models.Balance, error) {
	b, err := s.st.GetBalance(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Balance{UserID: userID}, nil
	}
	return b, err
}

// Ledger returns the user's trade history, newest first.
func (s *UserService) Ledger(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.st.ListLedgerByUser(ctx, userID, limit)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.st.ListUsers(ctx)
}
