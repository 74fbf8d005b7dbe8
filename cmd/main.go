package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "wisetrip-ads/internal/adapter/http"
	"wisetrip-ads/internal/adapter/postgres"
	redisguard "wisetrip-ads/internal/adapter/redis"
	"wisetrip-ads/internal/adapter/usecase"
	"wisetrip-ads/internal/config"
	"wisetrip-ads/internal/core/port"
	"wisetrip-ads/internal/db"
)

// main is the entry point of the sponsored-placement service. It loads
// configuration, optionally runs migrations and seeds demo data,
// initializes the database pool, the optional Redis click guard and the
// HTTP server, then waits for a termination signal to shut down
// gracefully.
func main() {
	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		var handler slog.Handler
		opts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, opts)
		default:
			handler = slog.NewTextHandler(os.Stdout, opts)
		}
		logger = slog.New(handler)
	}

	if cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied successfully")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Psql.SeedDemo {
		if err = db.Seed(ctx, pool); err != nil {
			logger.Error("seed error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("demo data seeded")
	}

	var guard port.ClickGuard
	if cfg.Redis.Addr != "" {
		g, err := redisguard.NewClickGuard(cfg.Redis.Addr, cfg.Redis.ClickTTL)
		if err != nil {
			logger.Error("redis connection error", slog.Any("error", err))
			os.Exit(1)
		}
		defer g.Close()
		guard = g
		logger.Info("click guard enabled", slog.String("addr", cfg.Redis.Addr))
	}

	capLoc, err := cfg.Sponsor.Location()
	if err != nil {
		logger.Error("invalid cap timezone", slog.String("tz", cfg.Sponsor.CapTimezone), slog.Any("error", err))
		os.Exit(1)
	}

	repo := postgres.NewSponsorRepository(pool)
	svc := usecase.NewSponsorService(repo, guard, cfg.Sponsor.ImpressionCostCents, cfg.Sponsor.ClickCostCents, capLoc)

	handler := httpadapter.NewHandler(svc, pool, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}
