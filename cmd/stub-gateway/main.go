package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/examind/examtaker/internal/config"
	"github.com/examind/examtaker/internal/logger"
	"github.com/examind/examtaker/internal/stub"
	"github.com/examind/examtaker/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Warn().Msg("DEVELOPMENT STUB gateway; never use for a real examination")
	log.Info().
		Str("port", cfg.StubPort).
		Str("mode", cfg.GinMode).
		Msg("Starting stub exam gateway")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Wire Stub Components ──────────────────────────────────────────
	store := stub.NewStore(time.Now)
	tokens := stub.NewTokenIssuer(cfg.TokenSecret)
	handler := stub.NewHandler(store, tokens, log, cfg.AllowedOrigins)
	router := stub.SetupRouter(handler, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.StubPort,
		Handler: router,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.StubPort).Msg("Stub gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
