// Package redemptionledger собирает и запускает основное приложение
// реестра погашений: хранилище, кеш, брокер уведомлений, сервисы и HTTP-сервер.
package redemptionledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/cache"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/config"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/jwt"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/migrations"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/rabbitmq"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/services/notifier"
	redemptionservice "github.com/magabrotheeeer/salon-redemption-ledger/internal/services/redemption"
	subscriptionservice "github.com/magabrotheeeer/salon-redemption-ledger/internal/services/subscription"
	visitstatusservice "github.com/magabrotheeeer/salon-redemption-ledger/internal/services/visitstatus"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/storage/repository"
)

// App представляет приложение реестра погашений.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает новый экземпляр приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.AmqpURL, cfg.RabbitMQ.ConnectRetries, cfg.RabbitMQ.ConnectDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	notify := notifier.New(ch)

	redemptionService := redemptionservice.New(db, notify, cacheRedis, logger)
	visitStatusService := visitstatusservice.New(db, notify, cacheRedis, logger)
	subscriptionService := subscriptionservice.New(db, db, cacheRedis, logger)

	parser := jwt.NewParser(cfg.JWTToken.JWTSecretKey)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, parser, db,
		redemptionService, visitStatusService, subscriptionService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Error("failed to close storage", slog.Any("err", cerr))
		}
		return err
	}
}
