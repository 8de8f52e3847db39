// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате, а также
// отображает доменные ошибки ядра на HTTP-статусы.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
	Data   any    `json:"data,omitempty"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OK возвращает успешный Response без данных.
func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must contain at least %s items", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// LedgerError отображает доменную ошибку ядра на HTTP-статус и тело ответа.
// Для KindVisitsExhausted в данные попадают наблюдённые счётчики.
// Недоменные ошибки отдаются как 500 с нейтральным сообщением.
func LedgerError(err error) (int, ErrorResponse) {
	var lerr *ledger.Error
	if !errors.As(err, &lerr) {
		return http.StatusInternalServerError, Error("internal error")
	}

	switch lerr.Kind {
	case ledger.KindNotFound:
		return http.StatusNotFound, Error(lerr.Msg)
	case ledger.KindInvalidState:
		return http.StatusConflict, Error(lerr.Msg)
	case ledger.KindSalonMismatch:
		return http.StatusConflict, Error(lerr.Msg)
	case ledger.KindInvalidPackage:
		return http.StatusUnprocessableEntity, Error(lerr.Msg)
	case ledger.KindVisitsExhausted:
		resp := Error(lerr.Msg)
		resp.Data = map[string]int{
			"completed_count": lerr.CompletedCount,
			"pending_count":   lerr.PendingCount,
			"visits_count":    lerr.VisitsCount,
		}
		return http.StatusConflict, resp
	case ledger.KindForbidden:
		return http.StatusForbidden, Error(lerr.Msg)
	case ledger.KindTransient:
		return http.StatusServiceUnavailable, Error("storage conflict, retry the request")
	default:
		return http.StatusInternalServerError, Error("internal error")
	}
}
