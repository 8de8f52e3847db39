package models

import "time"

// VisitStatus — статус визита в его жизненном цикле.
type VisitStatus string

const (
	// VisitPending — визит создан при сканировании, единица ещё не списана.
	VisitPending VisitStatus = "PENDING"
	// VisitConfirmed — визит подтверждён, списания по-прежнему нет.
	VisitConfirmed VisitStatus = "CONFIRMED"
	// VisitCompleted — визит завершён; единственная точка списания единицы.
	VisitCompleted VisitStatus = "COMPLETED"
	// VisitCancelled — визит отменён; возврат единицы только если был COMPLETED.
	VisitCancelled VisitStatus = "CANCELLED"
)

// Valid сообщает, является ли значение одним из известных статусов визита.
func (s VisitStatus) Valid() bool {
	switch s {
	case VisitPending, VisitConfirmed, VisitCompleted, VisitCancelled:
		return true
	}
	return false
}

// Visit представляет одну попытку погашения визита по подписке.
// Записи никогда не удаляются, статус меняется по конечному автомату.
type Visit struct {
	ID             int         // Идентификатор визита
	SubscriptionID int         // Подписка, по которой создан визит
	SalonID        int         // Салон, в котором произошло сканирование
	VisitDate      time.Time   // Время визита
	ServiceName    *string     // Название услуги (опционально)
	Status         VisitStatus // Текущий статус
}

// RedeemResult — результат успешного погашения: созданный визит и список
// услуг, уже полученных по этой подписке (для исключения повторного выбора).
type RedeemResult struct {
	Visit            Visit    `json:"visit"`
	UsedServiceNames []string `json:"used_service_names"`
}

// DummyRedeem используется для приёма запроса на погашение из JSON.
// Token — сырое содержимое QR-кода, как его отдал сканер.
type DummyRedeem struct {
	Token       string `json:"token" validate:"required"`      // Содержимое QR-кода
	SalonID     int    `json:"salon_id" validate:"required,gt=0"` // Салон, выполняющий погашение
	ServiceName string `json:"service_name,omitempty" validate:"omitempty"` // Услуга (опционально)
}

// DummyTransition используется для приёма запроса на смену статуса визита.
type DummyTransition struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED COMPLETED CANCELLED"` // Новый статус
}
