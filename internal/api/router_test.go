package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/auth"
	"github.com/goldvault/backend/internal/middleware"
	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/mpesa"
	"github.com/goldvault/backend/internal/services"
	"github.com/goldvault/backend/internal/store"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

type routerEnv struct {
	handler http.Handler
	st      *store.MemoryStore
	users   *services.UserService
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()

	if _, err := st.SetPrice(ctx, models.Price{
		BuyPricePerGram:  dec("100"),
		SellPricePerGram: dec("90"),
		CreatedBy:        "admin-1",
	}); err != nil {
		t.Fatalf("seed price: %v", err)
	}
	if _, err := st.CreatePool(ctx, "vault-a", "999.9", dec("10")); err != nil {
		t.Fatalf("seed pool: %v", err)
	}

	tm := auth.NewTokenManager("test-access", "test-refresh", "test", 15*time.Minute, time.Hour)
	users := services.NewUserService(st, tm)
	trades := services.NewTradeService(st, &mpesa.Stub{}, nil)

	handler := NewRouter(Deps{
		Users:   users,
		Trades:  trades,
		Prices:  services.NewPriceService(st, nil),
		Pools:   services.NewPoolService(st),
		Payouts: services.NewPayoutService(st, nil),
		Store:   st,
		AuthMW:  middleware.NewAuthMiddleware(tm, "test"),
		RateRPS: 0,
	})
	return &routerEnv{handler: handler, st: st, users: users}
}

func (e *routerEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *routerEnv) registerUser(t *testing.T, email string) string {
	t.Helper()
	res, err := e.users.Register(context.Background(), email, "correct horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res.AccessToken
}

func (e *routerEnv) registerAdmin(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := e.st.CreateUser(ctx, "admin@example.com", hash, models.RoleAdmin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	res, err := e.users.Login(ctx, "admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	return res.AccessToken
}

func TestHealthAndPublicPrice(t *testing.T) {
	env := newRouterEnv(t)

	if rec := env.do(t, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/api/v1/prices/current", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("prices/current = %d", rec.Code)
	}
	var q services.Quote
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if !q.BuyPricePerGram.Equal(dec("100")) {
		t.Fatalf("buy price = %s", q.BuyPricePerGram)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newRouterEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/v1/user/balance", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d, want 401", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/user/balance", "garbage-token", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d, want 401", rec.Code)
	}

	token := env.registerUser(t, "alice@example.com")
	if rec := env.do(t, http.MethodGet, "/api/v1/user/balance", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("with token = %d, want 200", rec.Code)
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	env := newRouterEnv(t)
	user := env.registerUser(t, "alice@example.com")
	admin := env.registerAdmin(t)

	if rec := env.do(t, http.MethodGet, "/api/v1/admin/pools/stats", user, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("user on admin route = %d, want 403", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/admin/pools/stats", admin, ""); rec.Code != http.StatusOK {
		t.Fatalf("admin on admin route = %d, want 200", rec.Code)
	}
}

func TestBuyEndToEndOverHTTP(t *testing.T) {
	env := newRouterEnv(t)
	token := env.registerUser(t, "alice@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/trade/buy", token,
		`{"amount_kes":"500","phone_number":"0712345678"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("buy = %d, body %s", rec.Code, rec.Body)
	}
	var receipt services.TradeReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if !receipt.Grams.Equal(dec("5")) {
		t.Fatalf("grams = %s, want 5", receipt.Grams)
	}

	// Confirm via the unauthenticated callback route.
	cb := `{"Body":{"stkCallback":{
		"CheckoutRequestID":"` + receipt.CheckoutRequestID + `","ResultCode":0,"ResultDesc":"ok",
		"CallbackMetadata":{"Item":[{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"}]}}}}`
	if rec := env.do(t, http.MethodPost, "/api/v1/mpesa/callback", "", cb); rec.Code != http.StatusOK {
		t.Fatalf("callback = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/user/balance", token, "")
	var b models.Balance
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if !b.OwnedGrams.Equal(dec("5")) {
		t.Fatalf("owned = %s, want 5", b.OwnedGrams)
	}

	// The trade shows up in the ledger listing.
	rec = env.do(t, http.MethodGet, "/api/v1/user/ledger", token, "")
	var entries []models.LedgerEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != models.LedgerCompleted {
		t.Fatalf("ledger = %+v", entries)
	}
}

func TestTradeStatusHiddenFromOtherUsers(t *testing.T) {
	env := newRouterEnv(t)
	alice := env.registerUser(t, "alice@example.com")
	bob := env.registerUser(t, "bob@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/trade/buy", alice,
		`{"amount_kes":"100","phone_number":"0712345678"}`)
	var receipt services.TradeReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/trade/"+receipt.TradeID, alice, ""); rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/trade/"+receipt.TradeID, bob, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("other user status = %d, want 404", rec.Code)
	}
}
