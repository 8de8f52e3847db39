// Package middlewarectx содержит HTTP middleware слоя API: извлечение
// личности актора из токена внешнего сервиса авторизации и ограничение
// частоты запросов.
//
// Ядро не аутентифицирует пользователей: токен уже выдан внешним сервисом,
// middleware лишь проверяет подпись и кладёт идентификатор актора и роль
// в контекст запроса.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/response"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/jwt"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// Actor — ключ для идентификатора актора в контексте
	Actor Key = "actor_id"
	// Role — ключ для роли актора в контексте
	Role Key = "role"
)

// ActorID извлекает идентификатор актора из контекста запроса.
func ActorID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(Actor).(int)
	return id, ok && id > 0
}

// ActorMiddleware возвращает HTTP middleware, который проверяет токен актора
// в заголовке Authorization.
//
// Если токен валиден, добавляет идентификатор актора и роль в контекст
// запроса, иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func ActorMiddleware(parser *jwt.Parser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.ActorMiddleware"
			authHeader := r.Header.Get("Authorization")

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), Actor, claims.ActorID)
			ctx = context.WithValue(ctx, Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
