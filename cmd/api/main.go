package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lifeline-dev/lifeline/internal/config"
	"github.com/lifeline-dev/lifeline/internal/handler"
	"github.com/lifeline-dev/lifeline/internal/hub"
	"github.com/lifeline-dev/lifeline/internal/service/audit"
	"github.com/lifeline-dev/lifeline/internal/service/hazard"
	"github.com/lifeline-dev/lifeline/internal/service/presence"
	"github.com/lifeline-dev/lifeline/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file; system environment wins when absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := newLogger(cfg.Log)

	auditLog, err := audit.New(cfg.Audit.Dir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open audit log directory")
	}
	defer auditLog.Close()

	fanout := hub.New(log)
	coordinator := session.NewCoordinator(
		fanout,
		presence.NewService(),
		hazard.NewService(cfg.Tracking.ProximityRadiusMeters),
		auditLog,
		log,
	)
	defer coordinator.Close()

	router := handler.NewRouter(fanout, coordinator, log)

	startServer(ctx, cfg.Server, router, log)
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(cfg.Level).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stderr).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log zerolog.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("lifeline backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
