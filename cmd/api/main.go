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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"schoolattendance/internal/attendance"
	"schoolattendance/internal/auth"
	"schoolattendance/internal/config"
	"schoolattendance/internal/directory"
	"schoolattendance/internal/handler"
	"schoolattendance/internal/httpmiddleware"
	"schoolattendance/internal/metrics"
	"schoolattendance/internal/settings"
	"schoolattendance/internal/store"
	"schoolattendance/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.IsProduction())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ProvisionDatabase() {
		if err := store.EnsureDatabase(ctx, cfg.AdminDSN(), cfg.DBName); err != nil {
			return err
		}
	}
	db, err := store.NewDB(ctx, cfg.DSN(), cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()

	adminHash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	if err := store.Bootstrap(ctx, db, store.Seed{AdminUsername: cfg.AdminUsername, AdminPasswordHash: adminHash}); err != nil {
		return err
	}
	slog.Info("database ready", "name", cfg.DBName)

	m := metrics.New()
	probes := map[string]handler.Probe{"db": db.Healthy}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.LoginRatePerMinute, cfg.LoginRatePerMinute)
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			slog.Warn("redis not reachable, using in-process login limiter", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer rdb.Close()
			limiter = httpmiddleware.NewRedisWindow(rdb.Client, "attendance:login", cfg.LoginRatePerMinute)
			probes["redis"] = rdb.Healthy
		}
	}

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	dirRepo := directory.NewRepository(db.Client)
	h := handler.New(
		auth.NewService(dirRepo, tokens),
		directory.NewService(dirRepo),
		attendance.NewService(attendance.NewRepository(db.Client), m),
		settings.NewService(db.Client),
		m,
		probes,
	)

	rc := handler.RouterConfig{
		Tokens:       tokens,
		Roles:        dirRepo,
		LoginLimiter: limiter,
		Requests:     m,
		Metrics:      m.Handler(),
		FrontendURL:  cfg.FrontendURL,
	}
	if !cfg.IsProduction() {
		rc.StaticDir = cfg.StaticDir
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.NewRouter(h, rc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server exited")
	return nil
}
