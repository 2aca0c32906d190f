package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/gateway"
	"wallet-ledger/internal/adapter/http/dto"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("ledger_driver", cfg.Ledger.Driver).
		Msg("Starting wallet ledger")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set (WLG_JWT_SECRET)")
	}

	ctx := context.Background()

	var (
		store     ports.LedgerStore
		auditSvc  ports.AuditService
		checkers  []ports.HealthChecker
		cache     ports.FundingCache
		rateLimit ports.RateLimitStore
	)

	// Ledger store
	switch cfg.Ledger.Driver {
	case "postgres":
		if cfg.Database.Migrate {
			if err := pgStorage.Migrate(cfg.Database.DSN(), log); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply migrations")
			}
		}

		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		store = pgStorage.NewLedgerStore(pool)
		auditSvc = service.NewAuditService(pgStorage.NewAuditRepository(pool), log)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	case "memory":
		log.Warn().Msg("Using in-memory ledger; balances are lost on restart")
		store = memory.NewLedgerStore()
		auditSvc = service.NewAuditService(nil, log)
	}

	// Redis is optional: without it funding dedup falls back to the store and
	// rate limiting is off.
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without funding cache and rate limits")
	} else {
		defer rdb.Close()
		cache = redisStorage.NewFundingCache(rdb)
		rateLimit = redisStorage.NewRateLimitStore(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	// Payment gateway
	var gw ports.PaymentGateway = gateway.StaticGateway{}
	if cfg.Gateway.Mode == "http" {
		gw = gateway.NewHTTPGateway(cfg.Gateway, nil, log)
	}
	if cfg.Gateway.CallbackSecret == "" {
		log.Warn().Msg("gateway.callback_secret is empty, funding callbacks are disabled")
	}

	// Core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	walletSvc := service.NewWalletService(store, cfg.Ledger.DefaultCurrency, log)
	transferSvc := service.NewTransferService(store, service.RetryPolicy{
		MaxAttempts: cfg.Ledger.MaxAttempts,
		BaseDelay:   cfg.Ledger.RetryBaseDelay,
	}, log)
	fundingSvc := service.NewFundingService(store, cache, cfg.Ledger.FundingCacheTTL, log)
	reportingSvc := service.NewReportingService(store, cfg.Ledger.RecentLimit)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		TransferSvc:    transferSvc,
		FundingSvc:     fundingSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		Gateway:        gw,
		RateLimitStore: rateLimit,
		AuditSvc:       auditSvc,
		HealthCheckers: checkers,
		Mapper:         dto.Mapper{Exponent: cfg.Ledger.CurrencyExponent},
		CallbackSecret: cfg.Gateway.CallbackSecret,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
