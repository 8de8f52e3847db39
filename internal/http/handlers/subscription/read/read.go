// Package read реализует HTTP-обработчик разрешения QR-кода подписки.
//
// Обработчик принимает сырой токен из URL и возвращает сводку подписки
// с расчётными признаками истечения. Сам токен может быть числовым
// идентификатором, JSON-полезной нагрузкой или непрозрачной строкой,
// стратегию разбора выбирает сервис.
package read

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/response"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// Handler управляет HTTP-запросами на чтение подписки по QR-коду.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис подписок
}

// Service описывает интерфейс сервиса подписок.
type Service interface {
	GetByQR(ctx context.Context, token string) (*models.SubscriptionSummary, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить подписку по QR-коду
// @Description Разрешает токен QR-кода в подписку и возвращает сводку с признаками истечения.
// @Tags Subscriptions
// @Produce  json
// @Param token path string true "Токен QR-кода"
// @Success 200 {object} map[string]any "Сводка подписки"
// @Failure 400 {object} response.ErrorResponse "Пустой токен"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Router /subscriptions/qr/{token} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := chi.URLParam(r, "token")
	if decoded, err := url.PathUnescape(token); err == nil {
		token = decoded
	}
	if token == "" {
		log.Error("empty token in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("empty token"))
		return
	}

	summary, err := h.service.GetByQR(r.Context(), token)
	if err != nil {
		log.Error("failed to resolve subscription", sl.Err(err))
		status, resp := response.LedgerError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("subscription resolved",
		slog.Int("subscription_id", summary.ID),
		slog.String("status", string(summary.Status)))
	render.JSON(w, r, response.OKWithData(summary))
}
