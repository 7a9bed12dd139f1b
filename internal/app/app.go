package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/TsegabAbreham/MovieApp/internal/config"
	"github.com/TsegabAbreham/MovieApp/internal/core"
	transporthttp "github.com/TsegabAbreham/MovieApp/internal/transport/http"
)

// App wires the room registry and transport layer together.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *core.Registry
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	registry := core.NewRegistry(cfg.MaxRoomSize)
	server := transporthttp.NewServer(registry, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		log:             logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Int("rooms", a.registry.RoomCount()).Msg("shutting down relay")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
