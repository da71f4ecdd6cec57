package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/murshop24/admin/internal/config"
	"github.com/murshop24/admin/internal/db"
	"github.com/murshop24/admin/internal/handlers"
	"github.com/murshop24/admin/internal/logger"
	"github.com/murshop24/admin/internal/services"
	"github.com/murshop24/admin/internal/telegram"
	"github.com/murshop24/admin/internal/web"
)

const (
	sessionTTL    = 24 * time.Hour
	purgeInterval = time.Hour
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	conn, err := db.Open(cfg.DB, cfg.Postgres, log)
	if err != nil {
		return err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	api := telegram.NewClient(cfg.TgAPI.Endpoint, cfg.TgAPI.Timeout)
	bots := services.NewBotService(conn, api, services.WebhookSettings{
		Host:        cfg.TgBot.Host,
		SecretToken: cfg.TgBot.SecretToken,
	}, log)
	sessions := services.NewSessions(conn, sessionTTL, services.RealClock{})

	views, err := handlers.NewViews(web.Templates())
	if err != nil {
		return err
	}
	admin := handlers.NewAdmin(conn, bots, sessions, views, log, cfg.AdminPassword)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeSessions(ctx, sessions, admin, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.Router(admin, log),
		ReadHeaderTimeout: 10 * time.Second,
		// Bot saves wait on two Telegram calls.
		WriteTimeout: 2*cfg.TgAPI.Timeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", zap.Error(err))
	}
	log.Info("shutdown complete")
	return nil
}

// purgeSessions drops expired admin sessions and idle login limiters until
// ctx is done.
func purgeSessions(ctx context.Context, sessions *services.Sessions, admin *handlers.Admin, log *zap.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := admin.PruneLoginLimiters(); n > 0 {
				log.Debug("idle login limiters dropped", zap.Int("count", n))
			}
			n, err := sessions.Purge(ctx)
			if err != nil {
				log.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}
