package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/TsegabAbreham/MovieApp/internal/app"
	"github.com/TsegabAbreham/MovieApp/internal/config"
	"github.com/TsegabAbreham/MovieApp/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	logger := log.New("info")

	cfg, path, err := config.Load(logger, *configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger = log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)

	logger.Info().Str("addr", cfg.Addr).Bool("enforce_host", cfg.EnforceHost).Msg("starting watch-together relay")
	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("relay exited with error")
	}
	logger.Info().Msg("relay stopped")
}
