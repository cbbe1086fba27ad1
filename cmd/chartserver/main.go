package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"charting-systemv1/config"
	"charting-systemv1/internal/chartserver"
	"charting-systemv1/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[chartserver] config: %v", err)
	}

	logger.InitWithOptions("chartserver", parseLevel(cfg.LogLevel), logger.Options{
		FilePath: cfg.LogFile,
	})

	svc, err := chartserver.New(cfg)
	if err != nil {
		log.Fatalf("[chartserver] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[chartserver] fatal: %v", err)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
