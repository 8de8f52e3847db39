// Package notifier реализует односторонний канал уведомлений ядра.
//
// Уведомления отправляются строго после фиксации транзакции и никогда
// не влияют на её результат: ошибка доставки логируется и проглатывается
// на стороне вызывающего. Доставка конечному получателю (push/email/
// WebSocket) — забота внешних потребителей очередей.
package notifier

import (
	"context"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/rabbitmq"
)

// Ключи маршрутизации уведомлений ядра.
const (
	// KindVisitCreated — визит создан, адресат — владелец салона.
	KindVisitCreated = "visit.created"
	// KindVisitCompleted — визит завершён, адресат — клиент.
	KindVisitCompleted = "visit.completed"
)

// Message — конверт уведомления, публикуемый в очередь.
type Message struct {
	UserID    int       `json:"user_id"`
	Kind      string    `json:"kind"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// AMQPNotifier публикует уведомления в RabbitMQ. Реализует ledger.Notifier.
type AMQPNotifier struct {
	ch *amqp.Channel
}

// New создаёт AMQPNotifier поверх открытого канала.
func New(ch *amqp.Channel) *AMQPNotifier {
	return &AMQPNotifier{ch: ch}
}

// Notify публикует уведомление с ключом маршрутизации kind.
func (n *AMQPNotifier) Notify(_ context.Context, userID int, kind string, payload any) error {
	return rabbitmq.PublishMessage(n.ch, rabbitmq.NotificationsExchange, kind, Message{
		UserID:    userID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
}

// Noop — заглушка для окружений без брокера и для тестов.
type Noop struct{}

// Notify ничего не делает.
func (Noop) Notify(context.Context, int, string, any) error { return nil }
