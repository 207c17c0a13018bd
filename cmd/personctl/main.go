package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firestoretut/personstore/internal/config"
	"github.com/firestoretut/personstore/internal/person/repository"
	"github.com/firestoretut/personstore/internal/person/service"
	"github.com/firestoretut/personstore/internal/storage"
	"github.com/firestoretut/personstore/pkg/logger"
)

func main() {
	logger.Init(envOr("LOG_LEVEL", "warn"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, closeStore := newRootCmd(deps{
		loadConfig:    config.LoadConfig,
		openService:   openService,
		openSnapshots: openSnapshots,
		now:           time.Now,
	})
	err := root.ExecuteContext(ctx)
	if cerr := closeStore(); cerr != nil {
		logger.Warnf("closing store: %v", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// openService connects the store selected by cfg.
func openService(ctx context.Context, cfg *config.Config) (*service.Service, func() error, error) {
	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := service.New(store,
		service.WithWriteConcurrency(cfg.Repository.WriteConcurrency),
		service.WithOperationTimeout(cfg.Repository.OperationTimeout),
	)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return svc, closeStore, nil
}

func openSnapshots(ctx context.Context, cfg *config.Config) (snapshotWriter, error) {
	return storage.NewMinIOStorage(ctx, cfg.MinIO)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
