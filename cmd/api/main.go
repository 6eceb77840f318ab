// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelamos/nestfund/internal/auth"
	"github.com/angelamos/nestfund/internal/clock"
	"github.com/angelamos/nestfund/internal/config"
	"github.com/angelamos/nestfund/internal/core"
	"github.com/angelamos/nestfund/internal/events"
	"github.com/angelamos/nestfund/internal/health"
	"github.com/angelamos/nestfund/internal/holder"
	"github.com/angelamos/nestfund/internal/keeper"
	"github.com/angelamos/nestfund/internal/ledger"
	"github.com/angelamos/nestfund/internal/middleware"
	"github.com/angelamos/nestfund/internal/ops"
	"github.com/angelamos/nestfund/internal/payout"
	"github.com/angelamos/nestfund/internal/plan"
	"github.com/angelamos/nestfund/internal/rates"
	"github.com/angelamos/nestfund/internal/server"
	"github.com/angelamos/nestfund/internal/transfer"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	var converter rates.Converter
	if cfg.Rates.StaticRate != "" {
		converter, err = rates.NewStaticConverter(cfg.Rates.StaticRate)
		if err != nil {
			return err
		}
		logger.Warn("using static exchange rate",
			"rate", cfg.Rates.StaticRate,
		)
	} else {
		converter = rates.NewRedisConverter(
			redis.Client,
			cfg.Rates.KeyPrefix,
			cfg.Engine.ReferenceCurrency,
			cfg.Engine.SettlementCurrency,
		)
	}

	var transfers transfer.ValueTransfer
	if cfg.Transfer.Endpoint != "" {
		transfers = transfer.NewGateway(
			cfg.Transfer.Endpoint,
			cfg.Transfer.Token,
			cfg.Engine.SettlementCurrency,
			cfg.Transfer.Timeout,
		)
	} else {
		transfers = transfer.NewLogTransfer(logger)
	}

	publisher := events.Multi(
		events.NewRedisPublisher(redis.Client, ""),
		events.NewLogPublisher(logger),
	)

	guard := core.NewIdentityGuard()
	clk := clock.System()

	holderRepo := holder.NewRepository(db.DB)
	holderSvc := holder.NewService(holderRepo)
	holderHandler := holder.NewHandler(holderSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, holderSvc, redis.Client)
	authHandler := auth.NewHandler(authSvc)

	planRepo := plan.NewRepository(db.DB)
	planSvc := plan.NewService(db, planRepo, converter, publisher, guard, clk)
	planHandler := plan.NewHandler(planSvc)

	payoutSvc := payout.NewService(
		db,
		planRepo,
		transfers,
		publisher,
		guard,
		clk,
		cfg.Engine.PayoutInterval,
	)
	payoutHandler := payout.NewHandler(payoutSvc)

	ledgerSvc := ledger.NewService(
		db,
		planRepo,
		transfers,
		publisher,
		guard,
		clk,
	)
	ledgerSvc.SetArmer(payoutSvc)
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	healthHandler := health.NewHandler(db, redis)

	opsHandler := ops.NewHandler(ops.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Totals:     planSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)
		holderHandler.RegisterRoutes(r, authenticator)
		planHandler.RegisterRoutes(r, authenticator)
		ledgerHandler.RegisterRoutes(r, authenticator)
		payoutHandler.RegisterRoutes(r)
		opsHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	var keep *keeper.Keeper
	if cfg.Keeper.Enabled {
		keep = keeper.New(payoutSvc, cfg.Keeper.BatchSize, logger)
		if err := keep.Register(cfg.Keeper.Schedule); err != nil {
			return err
		}
		keep.Start()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if keep != nil {
		keep.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
