package models

import "time"

// SubscriptionStatus — статус подписки.
type SubscriptionStatus string

const (
	// SubscriptionActive — подписка действует, визиты можно погашать.
	SubscriptionActive SubscriptionStatus = "ACTIVE"
	// SubscriptionExpired — подписка истекла по дате или исчерпана по визитам.
	SubscriptionExpired SubscriptionStatus = "EXPIRED"
	// SubscriptionCancelled — подписка отменена клиентом.
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription представляет купленный экземпляр пакета.
// Счётчики VisitsUsed/VisitsRemaining — это кеш, производный от
// количества завершённых визитов; расхождение исправляется сверкой
// на пути погашения и завершения.
type Subscription struct {
	ID              int                // Идентификатор подписки
	CustomerID      int                // Клиент, купивший пакет
	PackageID       int                // Пакет, по условиям которого создана подписка
	QRCode          string             // Непрозрачный уникальный токен, стабилен всю жизнь подписки
	VisitsUsed      int                // Кешированное число использованных визитов
	VisitsRemaining int                // Кешированное число оставшихся визитов
	StartDate       time.Time          // Дата начала действия
	EndDate         time.Time          // Дата окончания действия
	Status          SubscriptionStatus // Текущий статус
	AutoRenewal     bool               // Автопродление (информативно для ядра)
}

// SubscriptionSummary — подписка с производными полями для пути чтения по QR.
type SubscriptionSummary struct {
	Subscription
	PackageVisitsCount   int  `json:"package_visits_count"`   // Общая ёмкость пакета
	CompletedVisitsCount int  `json:"completed_visits_count"` // Авторитетное число завершённых визитов
	IsExpiredByDate      bool `json:"is_expired_by_date"`     // Истекла по дате
	IsExpiredByVisits    bool `json:"is_expired_by_visits"`   // Исчерпана по визитам
}

// DummyPurchase используется для приёма данных покупки пакета из JSON-запроса.
type DummyPurchase struct {
	PackageID   int  `json:"package_id" validate:"required,gt=0"` // Идентификатор пакета
	AutoRenewal bool `json:"auto_renewal,omitempty"`              // Автопродление
}

// DummyExpire используется для приёма списка подписок на массовое истечение.
type DummyExpire struct {
	SubscriptionIDs []int `json:"subscription_ids" validate:"required,min=1"` // Идентификаторы подписок
}
