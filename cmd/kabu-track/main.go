package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"kabu/internal/config"
	"kabu/internal/store"
)

func main() {
	cfgPath := flag.String("config", configPath(), "path to YAML config (optional)")
	list := flag.Bool("list", false, "print tracked codes and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: kabu-track [-config path] [-list] [code ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*list && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	if !*list {
		if err := db.AddTrackedSymbols(ctx, flag.Args()); err != nil {
			log.Fatalf("failed to track codes: %v", err)
		}
	}

	codes, err := db.ListTrackedSymbols(ctx)
	if err != nil {
		log.Fatalf("failed to list codes: %v", err)
	}
	for _, c := range codes {
		fmt.Println(c)
	}
}

func configPath() string {
	if p := os.Getenv("KABU_CONFIG"); p != "" {
		return p
	}
	return "config/kabu.yaml"
}
