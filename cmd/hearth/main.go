package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	hearthhttp "github.com/hearthhub/hearth/internal/adapter/http"
	hearthotel "github.com/hearthhub/hearth/internal/adapter/otel"
	"github.com/hearthhub/hearth/internal/adapter/postgres"
	"github.com/hearthhub/hearth/internal/adapter/rediscache"
	"github.com/hearthhub/hearth/internal/adapter/redissession"
	"github.com/hearthhub/hearth/internal/adapter/ristretto"
	"github.com/hearthhub/hearth/internal/adapter/tiered"
	"github.com/hearthhub/hearth/internal/config"
	"github.com/hearthhub/hearth/internal/logger"
	"github.com/hearthhub/hearth/internal/middleware"
	"github.com/hearthhub/hearth/internal/ratelimit"
	"github.com/hearthhub/hearth/internal/service"
	"github.com/hearthhub/hearth/internal/tenancy"
	"github.com/hearthhub/hearth/internal/token"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis is a soft dependency: caching and fast counters degrade to
		// Postgres, sessions fall back to bearer-only auth.
		slog.Warn("redis unreachable at startup, degraded mode", "error", err)
	}

	shutdownTracer, err := hearthotel.InitTracer(ctx, cfg.Tracing, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// --- Tenant resolution ---

	l1, err := ristretto.New(cfg.Tenancy.L1CacheBytes)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()
	tenantCache := tiered.New(l1, rediscache.New(redisClient, "hearth:"), cfg.Tenancy.L1ExpireTTL)

	store := postgres.NewStore(pool)
	resolver := tenancy.NewResolver(store, tenantCache, cfg.Tenancy.CacheTTL)

	// --- Auth and rate limiting ---

	sessions := redissession.New(redisClient, "session:")
	verifier := token.NewVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL, sessions)
	guard := ratelimit.NewLoginGuard(store)

	pgCounters := postgres.NewCounters(pool)
	throttle := ratelimit.NewThrottle(ratelimit.NewFailoverCounter(
		rediscache.NewCounters(redisClient, "rl:"),
		pgCounters,
	))

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	// --- Services and HTTP ---

	authSvc := service.NewAuthService(store, guard, verifier, sessions, cfg.Auth)
	tenantSvc := service.NewTenantService(store, resolver)

	handlers := hearthhttp.NewHandlers(authSvc, tenantSvc, store, pool)
	router := hearthhttp.NewRouter(handlers, hearthhttp.RouterDeps{
		Verifier: verifier,
		Resolver: resolver,
		Limiter:  limiter,
		Throttle: throttle,
		Server:   cfg.Server,
		Rate:     cfg.Rate,
	})

	var handler http.Handler = router
	if cfg.Tracing.Enabled {
		handler = hearthotel.Tracing(cfg.Logging.Service)(handler)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := pgCounters.PruneExpired(gctx); err != nil {
					slog.Warn("counter prune failed", "error", err)
				} else if n > 0 {
					slog.Info("pruned expired rate counters", "count", n)
				}
				cutoff := time.Now().Add(-(ratelimit.AttemptWindow + ratelimit.LockoutDuration))
				if n, err := store.PruneAttemptsBefore(gctx, cutoff); err != nil {
					slog.Warn("attempt prune failed", "error", err)
				} else if n > 0 {
					slog.Info("pruned stale login attempts", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
