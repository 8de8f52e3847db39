// Package transition реализует HTTP-обработчик смены статуса визита.
//
// Handler принимает новый статус из JSON-запроса, извлекает актора из
// контекста и вызывает конечный автомат статуса визита. Права актора
// (клиент подписки или владелец салона) проверяет сам автомат.
package transition

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/response"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// Handler управляет HTTP-запросами на смену статуса визита.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Конечный автомат статуса визита
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс конечного автомата статуса визита.
type Service interface {
	Transition(ctx context.Context, visitID, actorID int, newStatus models.VisitStatus) (*models.Visit, error)
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
// @Summary Сменить статус визита
// @Description Переводит визит в новый статус. Переход в COMPLETED списывает единицу пакета, отмена завершённого визита возвращает её.
// @Tags Visits
// @Accept  json
// @Produce  json
// @Param id path int true "Идентификатор визита"
// @Param request body models.DummyTransition true "Новый статус"
// @Success 200 {object} map[string]any "Визит с новым статусом"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или id"
// @Failure 401 {object} response.ErrorResponse "Актор не авторизован"
// @Failure 403 {object} response.ErrorResponse "Актор не имеет прав на визит"
// @Failure 404 {object} response.ErrorResponse "Визит не найден"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход или визиты исчерпаны"
// @Router /visits/{id}/status [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.visit.transition"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	visitID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	var req models.DummyTransition
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

	actorID, ok := middlewarectx.ActorID(r.Context())
	if !ok {
		log.Error("actor not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	visit, err := h.service.Transition(r.Context(), visitID, actorID, models.VisitStatus(req.Status))
	if err != nil {
		log.Error("failed to transition visit", sl.Err(err))
		status, resp := response.LedgerError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("visit transitioned",
		slog.Int("visit_id", visit.ID),
		slog.String("status", string(visit.Status)))
	render.JSON(w, r, response.OKWithData(visit))
}
