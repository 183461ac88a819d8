package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goldvault/backend/internal/api"
	"github.com/goldvault/backend/internal/auth"
	"github.com/goldvault/backend/internal/config"
	"github.com/goldvault/backend/internal/db"
	"github.com/goldvault/backend/internal/logger"
	"github.com/goldvault/backend/internal/metrics"
	"github.com/goldvault/backend/internal/middleware"
	"github.com/goldvault/backend/internal/mpesa"
	"github.com/goldvault/backend/internal/services"
	"github.com/goldvault/backend/internal/store"
	"github.com/goldvault/backend/internal/worker"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logger.New(cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") != "false" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			slog.Error("run migrations", "err", err)
			os.Exit(1)
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, price cache disabled", "err", err)
			rdb = nil
		}
	}

	metrics.Init()

	st := store.NewPostgres(pool)
	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, 15*time.Minute, 7*24*time.Hour)
	wp := worker.NewPool(4)
	defer wp.Stop()

	var gw mpesa.Gateway
	if cfg.MpesaConsumerKey != "" {
		gw = mpesa.NewClient(mpesa.Config{
			ConsumerKey:    cfg.MpesaConsumerKey,
			ConsumerSecret: cfg.MpesaConsumerSecret,
			ShortCode:      cfg.MpesaShortCode,
			Passkey:        cfg.MpesaPasskey,
			CallbackURL:    cfg.MpesaCallbackURL,
			Environment:    cfg.MpesaEnvironment,
		})
	} else {
		slog.Warn("mpesa credentials missing, using stub gateway")
		gw = &mpesa.Stub{}
	}

	users := services.NewUserService(st, tm)
	trades := services.NewTradeService(st, gw, wp)
	prices := services.NewPriceService(st, rdb)
	pools := services.NewPoolService(st)
	payouts := services.NewPayoutService(st, wp)

	if cfg.SweepInterval > 0 {
		go trades.RunExpirySweep(ctx, cfg.SweepInterval, cfg.SweepMaxAge)
	}

	handler := api.NewRouter(api.Deps{
		Users:   users,
		Trades:  trades,
		Prices:  prices,
		Pools:   pools,
		Payouts: payouts,
		Store:   st,
		AuthMW:  middleware.NewAuthMiddleware(tm, cfg.Env),
		RateRPS: cfg.RateRPS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
}
