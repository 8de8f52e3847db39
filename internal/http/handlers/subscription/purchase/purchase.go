// Package purchase реализует HTTP-обработчик покупки подписки.
package purchase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/response"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// Handler управляет HTTP-запросами на покупку подписки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис подписок
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс сервиса подписок.
type Service interface {
	Purchase(ctx context.Context, customerID int, req models.DummyPurchase) (*models.Subscription, error)
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
// @Summary Купить подписку
// @Description Создаёт активную подписку на пакет для авторизованного клиента и выпускает QR-код.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummyPurchase true "Параметры покупки"
// @Success 200 {object} map[string]any "Созданная подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Актор не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пакет не найден"
// @Failure 422 {object} response.ErrorResponse "Пакет с нулевым числом визитов"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.purchase"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPurchase
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

	subscription, err := h.service.Purchase(r.Context(), actorID, req)
	if err != nil {
		log.Error("failed to purchase subscription", sl.Err(err))
		status, resp := response.LedgerError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("subscription purchased",
		slog.Int("subscription_id", subscription.ID),
		slog.Int("package_id", subscription.PackageID))
	render.JSON(w, r, response.OKWithData(subscription))
}
