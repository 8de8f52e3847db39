// Package expire реализует HTTP-обработчик пометки подписок истёкшими.
package expire

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/response"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// Handler управляет HTTP-запросами на пометку подписок истёкшими.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис подписок
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс сервиса подписок.
type Service interface {
	MarkExpired(ctx context.Context, ids []int) (int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Пометить подписки истёкшими
// @Description Помечает перечисленные подписки истёкшими, если их срок действия прошёл. Подписки, не подходящие под условие, молча пропускаются.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummyExpire true "Идентификаторы подписок"
// @Success 200 {object} map[string]any "Количество помеченных подписок"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Пустой список идентификаторов"
// @Router /subscriptions/expire [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.expire"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyExpire
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	count, err := h.service.MarkExpired(r.Context(), req.SubscriptionIDs)
	if err != nil {
		log.Error("failed to mark subscriptions expired", sl.Err(err))
		status, resp := response.LedgerError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("subscriptions marked expired", slog.Int("count", count))
	render.JSON(w, r, response.OKWithData(map[string]int{"expired_count": count}))
}
