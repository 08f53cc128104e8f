package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/pzielin/airwatch/internal/jsonstore"
	"github.com/pzielin/airwatch/internal/store"
	"github.com/pzielin/airwatch/services/api/config"
	httpserver "github.com/pzielin/airwatch/services/api/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("api failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := httpserver.New(cfg, st)
	log.Printf("api listening on %s", cfg.ListenAddr())
	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg config.Config) (httpserver.Store, func(), error) {
	switch cfg.StoreDriver {
	case "file":
		fs, err := jsonstore.New(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		pg, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Init(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
}
