package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/guildtools/dkpledger/internal/config"
	"github.com/guildtools/dkpledger/internal/handler"
	"github.com/guildtools/dkpledger/internal/logging"
	"github.com/guildtools/dkpledger/internal/middleware"
	"github.com/guildtools/dkpledger/internal/repository"
	"github.com/guildtools/dkpledger/internal/service/dkp"
	"github.com/guildtools/dkpledger/internal/service/loot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("dkpledger-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           buildRouter(db, cfg),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func buildRouter(db *sql.DB, cfg *config.Config) http.Handler {
	transactionRepo := repository.NewTransactionRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	lootRepo := repository.NewLootRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	dkpSvc := dkp.NewService(transactionRepo, balanceRepo, db, cfg)
	lootSvc := loot.NewService(lootRepo, rosterRepo, dkpSvc, cfg)

	dkpHandler := handler.NewDKPHandler(dkpSvc)
	lootHandler := handler.NewLootHandler(lootSvc)
	healthHandler := handler.NewHealthHandler(db)

	idempotent := middleware.Idempotency(idempotencyRepo, time.Duration(cfg.IdempotencyTTLH)*time.Hour)
	officer := middleware.RequireOfficer

	api := http.NewServeMux()
	api.Handle("POST /api/v1/dkp/awards", officer(idempotent(http.HandlerFunc(dkpHandler.Award))))
	api.Handle("POST /api/v1/dkp/awards/bulk", officer(idempotent(http.HandlerFunc(dkpHandler.BulkAward))))
	api.Handle("POST /api/v1/dkp/spends", officer(idempotent(http.HandlerFunc(dkpHandler.Spend))))
	api.Handle("POST /api/v1/dkp/adjustments", officer(idempotent(http.HandlerFunc(dkpHandler.Adjust))))
	api.HandleFunc("GET /api/v1/dkp/leaderboard", dkpHandler.Leaderboard)
	api.HandleFunc("GET /api/v1/dkp/members/{memberId}/balance", dkpHandler.GetBalance)
	api.HandleFunc("GET /api/v1/dkp/transactions", dkpHandler.ListTransactions)
	api.Handle("POST /api/v1/loot", officer(idempotent(http.HandlerFunc(lootHandler.Record))))
	api.Handle("POST /api/v1/loot/import", officer(idempotent(http.HandlerFunc(lootHandler.Import))))
	api.HandleFunc("GET /api/v1/loot", lootHandler.List)

	// Health endpoints stay outside the auth chain; everything else needs a
	// guild-scoped token. Logging sits inside Auth so request logs carry
	// the actor.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.Handle("/api/v1/", middleware.Auth(cfg.JWTSecret)(middleware.Logging(api)))

	return middleware.Tracing(middleware.Recovery(mux))
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		return nil, fmt.Errorf("connectDB: %w", err)
	}

	for i := range 30 {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("connectDB: %w", ctx.Err())
		case <-time.After(time.Second):
		}
	}

	db.Close()
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
