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

	"github.com/sciencelab/sciencelab-lms/internal/ai"
	api "github.com/sciencelab/sciencelab-lms/internal/api/http"
	"github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/config"
	"github.com/sciencelab/sciencelab-lms/internal/db"
	"github.com/sciencelab/sciencelab-lms/internal/experiment"
	"github.com/sciencelab/sciencelab-lms/internal/quiz"
	"github.com/sciencelab/sciencelab-lms/internal/roster"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Error("database open failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer dbh.Close()

	tokens := auth.NewTokenService(cfg.AuthSecret, cfg.TokenTTL)
	users := user.NewStore(dbh)
	experiments := experiment.NewStore(dbh)
	quizzes := quiz.NewStore(dbh, log)
	aic := ai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.AITimeout, log)
	audit := roster.NewAuditStore(dbh)
	rosterSvc := roster.NewService(users, audit, cfg.BcryptCost, cfg.ResetTokenTTL, log)

	handler := api.NewRouter(api.Deps{
		DB:          dbh,
		Tokens:      tokens,
		Users:       users,
		Experiments: experiments,
		Quizzes:     quizzes,
		AI:          aic,
		ChatHistory: ai.NewHistory(dbh),
		Roster:      rosterSvc,
		Audit:       audit,
		Log:         log,

		BcryptCost:       cfg.BcryptCost,
		CORSOrigins:      cfg.CORSOrigins,
		ExposeResetToken: cfg.AllowDebugResetToken,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr, "driver", cfg.DBDriver, "ai_configured", aic.Configured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
