// Package ledger содержит ядро учёта погашений: таксономию доменных ошибок,
// интерфейсы транзакционного доступа к хранилищу, сверку счётчиков подписки
// и повтор операций при конфликтах сериализации.
package ledger

import (
	"errors"
	"fmt"
)

// Kind — вид доменной ошибки ядра. Бизнес-ошибки никогда не повторяются
// автоматически; повторяется только KindTransient.
type Kind string

const (
	// KindNotFound — токен или идентификатор не соответствует ни одной записи.
	KindNotFound Kind = "not_found"
	// KindInvalidState — подписка или визит не в допустимом для операции статусе.
	KindInvalidState Kind = "invalid_state"
	// KindSalonMismatch — погашающий салон не владеет пакетом подписки.
	KindSalonMismatch Kind = "salon_mismatch"
	// KindInvalidPackage — пакет с неположительным количеством визитов.
	KindInvalidPackage Kind = "invalid_package"
	// KindVisitsExhausted — ёмкость пакета достигнута или превышена.
	KindVisitsExhausted Kind = "visits_exhausted"
	// KindForbidden — актор не является ни клиентом подписки, ни владельцем салона.
	KindForbidden Kind = "forbidden"
	// KindTransient — конфликт блокировки/сериализации, операцию безопасно повторить.
	KindTransient Kind = "transient"
)

// Error — доменная ошибка ядра с видом и наблюдёнными счётчиками
// (заполняются для KindVisitsExhausted, чтобы ответ содержал диагностику).
type Error struct {
	Kind           Kind
	Msg            string
	CompletedCount int   // Авторитетное число завершённых визитов на момент отказа
	PendingCount   int   // Число ожидающих визитов на момент отказа
	VisitsCount    int   // Ёмкость пакета
	Err            error // Обёрнутая причина (для KindTransient)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound возвращает ошибку вида KindNotFound.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// InvalidState возвращает ошибку вида KindInvalidState.
func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

// SalonMismatch возвращает ошибку вида KindSalonMismatch.
func SalonMismatch(salonID, packageSalonID int) *Error {
	return &Error{
		Kind: KindSalonMismatch,
		Msg:  fmt.Sprintf("salon %d does not own the subscription package (owned by salon %d)", salonID, packageSalonID),
	}
}

// InvalidPackage возвращает ошибку вида KindInvalidPackage.
func InvalidPackage(packageID, visitsCount int) *Error {
	return &Error{
		Kind: KindInvalidPackage,
		Msg:  fmt.Sprintf("package %d has non-positive visits count %d", packageID, visitsCount),
	}
}

// VisitsExhausted возвращает ошибку вида KindVisitsExhausted с наблюдёнными счётчиками.
func VisitsExhausted(completed, pending, visitsCount int) *Error {
	return &Error{
		Kind:           KindVisitsExhausted,
		Msg:            fmt.Sprintf("visits exhausted: completed=%d pending=%d capacity=%d", completed, pending, visitsCount),
		CompletedCount: completed,
		PendingCount:   pending,
		VisitsCount:    visitsCount,
	}
}

// Forbidden возвращает ошибку вида KindForbidden.
func Forbidden(actorID int) *Error {
	return &Error{
		Kind: KindForbidden,
		Msg:  fmt.Sprintf("actor %d is neither the subscription customer nor the salon owner", actorID),
	}
}

// Transient оборачивает инфраструктурную ошибку как повторяемую.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Msg: "transient storage conflict", Err: err}
}

// KindOf извлекает вид доменной ошибки; пустая строка, если ошибка не доменная.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTransient сообщает, безопасно ли повторить операцию целиком.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
