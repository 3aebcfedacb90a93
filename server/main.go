package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/ruleeditor"
	"github.com/meikuraledutech/ruleeditor/interactions"
	"github.com/meikuraledutech/ruleeditor/internal/config"
	"github.com/meikuraledutech/ruleeditor/internal/logger"
	"github.com/meikuraledutech/ruleeditor/postgres"
)

func main() {
	cfg, err := config.Load(os.Getenv("RULEEDITOR_CONFIG"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "error", err)
	}

	registry, err := interactions.Load(cfg.InteractionsFile)
	if err != nil {
		log.Fatal("load interactions", "file", cfg.InteractionsFile, "error", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect", "error", err)
	}
	defer pool.Close()

	var store ruleeditor.Store = postgres.New(pool)

	app := newApp(store, registry, log)
	log.Info("listening", "addr", cfg.ListenAddr, "interactions", len(registry.IDs()))
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatal("listen", "error", err)
	}
}
