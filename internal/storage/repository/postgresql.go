// Package repository реализует хранилище учёта погашений на основе PostgreSQL.
// Предоставляет чтение подписок, пакетов и визитов, строчные блокировки
// и транзакции с классификацией конфликтов сериализации как повторяемых.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
)

// querier — общий интерфейс *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries содержит все строчные операции; метод-сет общий для Storage
// (autocommit) и Tx (внутри транзакции).
type queries struct {
	db querier
}

// Storage инкапсулирует соединение с PostgreSQL.
type Storage struct {
	DB *sql.DB
	queries
}

// Tx — операции, привязанные к открытой транзакции. Реализует ledger.TxStore.
type Tx struct {
	queries
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB:      db,
		queries: queries{db: db},
	}, nil
}

// WithTx выполняет fn в одной транзакции. Ошибка из fn откатывает транзакцию.
// Конфликты сериализации, дедлоки и недоступные блокировки возвращаются
// как ledger.Transient, чтобы вызывающий мог безопасно повторить операцию.
func (s *Storage) WithTx(ctx context.Context, fn func(tx ledger.TxStore) error) error {
	const op = "storage.WithTx"

	sqlTx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}

	if err := fn(&Tx{queries{db: sqlTx}}); err != nil {
		_ = sqlTx.Rollback()
		if ledger.KindOf(err) != "" {
			return err
		}
		return classify(op, err)
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(op, err)
	}
	return nil
}

// classify оборачивает инфраструктурную ошибку, помечая повторяемые конфликты.
func classify(op string, err error) error {
	if isTransient(err) {
		return ledger.Transient(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isTransient распознаёт ошибки, при которых операцию безопасно повторить целиком.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.LockNotAvailable:
			return true
		}
	}
	return false
}
