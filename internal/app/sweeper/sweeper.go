// Package sweeper содержит логику фонового обходчика истёкших подписок.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/cache"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/config"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	subscriptionservice "github.com/magabrotheeeer/salon-redemption-ledger/internal/services/subscription"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/storage/repository"
)

const defaultBatchSize = 100

// App представляет приложение обходчика истёкших подписок.
type App struct {
	subscriptionService *subscriptionservice.Service
	db                  *repository.Storage
	interval            time.Duration
	batchSize           int
	logger              *slog.Logger
}

// New создает новый экземпляр приложения обходчика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	subscriptionService := subscriptionservice.New(db, db, cacheRedis, logger)

	batchSize := cfg.Sweeper.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &App{
		subscriptionService: subscriptionService,
		db:                  db,
		interval:            cfg.Sweeper.Interval,
		batchSize:           batchSize,
		logger:              logger,
	}, nil
}

// Run запускает периодический обход и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down sweeper")
			if err := a.db.DB.Close(); err != nil {
				a.logger.Error("failed to close storage", sl.Err(err))
			}
			return nil
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *App) sweep(ctx context.Context) {
	count, err := a.subscriptionService.SweepOnce(ctx, a.batchSize)
	if err != nil {
		a.logger.Error("sweep failed", sl.Err(err))
		return
	}
	if count > 0 {
		a.logger.Info("subscriptions marked expired", slog.Int("count", count))
	}
}
