// Package api wires handlers, middleware and routes into the HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/goldvault/backend/internal/api/handlers"
	"github.com/goldvault/backend/internal/api/httpx"
	"github.com/goldvault/backend/internal/metrics"
	"github.com/goldvault/backend/internal/middleware"
	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/services"
	"github.com/goldvault/backend/internal/store"
)

// Deps carries everything the router needs; cmd/api builds one after wiring
// the services.
type Deps struct {
	Users   *services.UserService
	Trades  *services.TradeService
	Prices  *services.PriceService
	Pools   *services.PoolService
	Payouts *services.PayoutService
	Store   store.Store
	AuthMW  *middleware.AuthMiddleware
	RateRPS int
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.HTTPMetrics)
	r.Use(middleware.RateLimit(d.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	authH := handlers.NewAuthHandler(d.Users)
	tradeH := handlers.NewTradeHandler(d.Trades)
	userH := handlers.NewUserHandler(d.Users)
	priceH := handlers.NewPriceHandler(d.Prices)
	adminH := handlers.NewAdminHandler(d.Pools, d.Payouts, d.Users, d.Store)
	callbackH := handlers.NewCallbackHandler(d.Trades)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.Post("/refresh", authH.Refresh)
		})

		r.Get("/prices/current", priceH.Current)

		// The gateway cannot authenticate; matching is by reference.
		r.Post("/mpesa/callback", callbackH.Handle)

		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth)

			r.Route("/trade", func(r chi.Router) {
				r.Post("/buy", tradeH.Buy)
				r.Post("/sell", tradeH.Sell)
				r.Get("/{id}", tradeH.Status)
			})
			r.Route("/user", func(r chi.Router) {
				r.Get("/me", userH.Me)
				r.Get("/balance", userH.Balance)
				r.Get("/ledger", userH.Ledger)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Post("/prices", priceH.Set)
				r.Get("/prices/history", priceH.History)

				r.Route("/admin", func(r chi.Router) {
					r.Route("/pools", func(r chi.Router) {
						r.Get("/", adminH.ListPools)
						r.Post("/", adminH.CreatePool)
						r.Get("/stats", adminH.PoolStats)
						r.Get("/{id}", adminH.GetPool)
						r.Patch("/{id}/topup", adminH.TopUpPool)
					})
					r.Route("/payouts", func(r chi.Router) {
						r.Get("/", adminH.ListPayouts)
						r.Get("/pending", adminH.PendingPayouts)
						r.Post("/{id}/approve", adminH.ApprovePayout)
						r.Post("/{id}/reject", adminH.RejectPayout)
					})
					r.Get("/transactions", adminH.ListLedger)
					r.Get("/users", adminH.ListUsers)
				})
			})
		})
	})

	return r
}
