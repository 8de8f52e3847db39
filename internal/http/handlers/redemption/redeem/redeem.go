// Package redeem реализует HTTP-обработчик погашения визита по QR-токену.
//
// Handler принимает JSON-запрос с токеном сканера, салоном и опциональной
// услугой, вызывает координатор погашения и возвращает созданный ожидающий
// визит вместе со списком уже полученных услуг.
package redeem

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/response"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// Handler управляет HTTP-запросами на погашение визитов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Координатор погашения
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс координатора погашения.
type Service interface {
	Redeem(ctx context.Context, token string, salonID int, serviceName string) (*models.RedeemResult, error)
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
// @Summary Погасить визит по QR-токену
// @Description Создаёт ожидающий визит по подписке, разрешённой из токена сканера. Единица пакета на этом шаге не списывается.
// @Tags Redemption
// @Accept  json
// @Produce  json
// @Param request body models.DummyRedeem true "Токен сканера и салон"
// @Success 200 {object} map[string]any "Созданный визит и уже полученные услуги"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Подписка неактивна, чужой салон или визиты исчерпаны"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /redeem [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.redemption.redeem"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyRedeem
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

	result, err := h.service.Redeem(r.Context(), req.Token, req.SalonID, req.ServiceName)
	if err != nil {
		log.Error("failed to redeem visit", sl.Err(err))
		if ledger.KindOf(err) == ledger.KindVisitsExhausted {
			log.Info("package exhausted", slog.Int("salon_id", req.SalonID))
		}
		status, resp := response.LedgerError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("visit redeemed", slog.Int("visit_id", result.Visit.ID))
	render.JSON(w, r, response.OKWithData(result))
}
