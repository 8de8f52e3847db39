// Package health реализует HTTP-обработчик проверки работоспособности сервиса.
package health

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/response"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
)

// Handler управляет HTTP-запросами проверки работоспособности.
type Handler struct {
	log *slog.Logger // Логгер для записи информации и ошибок
	db  *sql.DB      // Подключение к базе данных
}

// New создает новый Handler с переданными логгером и подключением к базе.
func New(log *slog.Logger, db *sql.DB) *Handler {
	return &Handler{
		log: log,
		db:  db,
	}
}

// ServeHTTP godoc
// @Summary Проверка работоспособности
// @Description Проверяет доступность сервиса и базы данных.
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис работает"
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.log.Error("database ping failed", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database unavailable"))
		return
	}
	render.JSON(w, r, response.OK())
}
