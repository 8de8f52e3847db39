// Package models содержит доменные структуры ядра погашения визитов:
// пакет услуг салона, подписку (купленный пакет) и визит (попытку погашения).
package models

// Package представляет пакет услуг из каталога салона.
// Для ядра погашения пакет — неизменяемый справочник: условия
// (количество визитов, срок действия) фиксируются в момент покупки.
type Package struct {
	ID           int    // Идентификатор пакета
	SalonID      int    // Салон, которому принадлежит пакет
	Name         string // Название пакета
	Price        int    // Цена пакета
	VisitsCount  int    // Общее количество визитов в пакете (>0)
	ValidityDays int    // Срок действия пакета в днях (>0)
}

// Salon представляет салон-владельца пакетов. Ядру нужен только владелец
// для проверки прав при смене статуса визита.
type Salon struct {
	ID      int    // Идентификатор салона
	OwnerID int    // Идентификатор пользователя-владельца
	Name    string // Название салона
}
