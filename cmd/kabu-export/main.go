package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kabu/internal/config"
	"kabu/internal/store"
	"kabu/internal/util"
)

func main() {
	cfgPath := flag.String("config", configPath(), "path to YAML config (optional)")
	outDir := flag.String("out", "", "export root (default storage.data_dir)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	dir := cfg.Storage.DataDir
	if *outDir != "" {
		dir = *outDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	codes, err := db.ListTrackedSymbols(ctx)
	if err != nil {
		log.Fatalf("failed to list codes: %v", err)
	}

	sum, err := store.NewParquetExporter(dir).Export(ctx, db, codes)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	logger.Info("export complete",
		"dir", dir,
		"symbols", sum.Symbols,
		"stockBars", sum.StockBars,
		"indexBars", sum.IndexBars,
	)
}

func configPath() string {
	if p := os.Getenv("KABU_CONFIG"); p != "" {
		return p
	}
	return "config/kabu.yaml"
}
