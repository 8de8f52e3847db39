package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
)

// MaxAttempts — максимальное число попыток одной операции ядра.
const MaxAttempts = 3

// retryBackoff — пауза между попытками при конфликте сериализации.
const retryBackoff = 50 * time.Millisecond

// WithRetry выполняет fn до MaxAttempts раз, повторяя только при
// KindTransient (конфликт блокировки или сериализации). Бизнес-ошибки
// возвращаются сразу. После исчерпания попыток возвращается последняя
// KindTransient-ошибка.
func WithRetry(ctx context.Context, log *slog.Logger, fn func() error) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		log.Warn("transient storage conflict, retrying",
			slog.Int("attempt", attempt), sl.Err(err))
		if attempt == MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Transient(ctx.Err())
		case <-time.After(retryBackoff):
		}
	}
	return err
}
