package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kabu/internal/config"
	"kabu/internal/domain"
	"kabu/internal/gather/jp"
	"kabu/internal/store"
	"kabu/internal/util"
)

func main() {
	cfgPath := flag.String("config", configPath(), "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if !cfg.HasCredential() {
		logger.Warn("no API credential configured, using anonymous access", "provider", cfg.Provider.Name)
	}

	epoch, err := domain.ParseDate(cfg.Gather.StartDate)
	if err != nil {
		log.Fatalf("invalid gather.start_date: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, epoch); err != nil {
		logger.Error("jp-daily failed", "err", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, epoch time.Time) error {
	db, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	source, err := jp.NewSource(cfg)
	if err != nil {
		return err
	}
	fetcher := jp.NewFetcher(source, util.NewRateLimiter(cfg.Provider.RateLimitPerMin))

	gatherer := jp.NewDailyBarGatherer(fetcher, db, db, epoch, slog.Default().With("provider", source.Name()))
	_, err = gatherer.Gather(ctx)
	return err
}

func configPath() string {
	if p := os.Getenv("KABU_CONFIG"); p != "" {
		return p
	}
	return "config/kabu.yaml"
}
