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

	"github.com/PythonTilk/Notes/internal/app/migrate"
	apihttp "github.com/PythonTilk/Notes/internal/http"
	"github.com/PythonTilk/Notes/internal/repository/postgres"
	"github.com/PythonTilk/Notes/internal/service/account"
	"github.com/PythonTilk/Notes/internal/service/banlist"
	"github.com/PythonTilk/Notes/internal/service/mail"
	"github.com/PythonTilk/Notes/internal/service/note"
	"github.com/PythonTilk/Notes/internal/ws"
	"github.com/PythonTilk/Notes/pkg/config"
	"github.com/PythonTilk/Notes/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(config.GetString("LOG_LEVEL", "info")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	if err := runner.Ping(ctx); err != nil {
		log.Error("database is unreachable", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)

	var mailer mail.Gateway
	if cfg.MailEnabled {
		mailer = mail.NewSMTPGateway(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, log)
	} else {
		log.Info("mail delivery disabled, logging messages instead")
		mailer = mail.NewLogGateway(log)
	}

	hub := ws.NewHub(cfg.BoardEventBuffer)
	bans := banlist.New(repo, log)
	accounts := account.New(repo, bans, mailer, log, cfg)
	notes := note.New(repo, hub, log)

	limiter := apihttp.NewMemoryRateLimiter()
	if cfg.RateLimitRedisAddr != "" {
		redisLimiter, err := apihttp.NewRedisRateLimiter(cfg.RateLimitRedisAddr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable, falling back to memory", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := apihttp.NewRouter(log, accounts, notes, bans, hub, limiter, pool.Ping)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", cfg.Addr, "environment", cfg.Environment)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		if closeErr := server.Close(); closeErr != nil {
			log.Error("forced close failed", "error", closeErr)
		}
	}

	log.Info("api stopped", slog.String("addr", cfg.Addr))
}
