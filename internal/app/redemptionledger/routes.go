// Package redemptionledger предоставляет маршруты для основного приложения.
package redemptionledger

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	_ "github.com/magabrotheeeer/salon-redemption-ledger/docs"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/handlers/redemption/redeem"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/handlers/subscription/expire"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/handlers/subscription/health"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/handlers/subscription/purchase"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/handlers/visit/list"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/handlers/visit/transition"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/jwt"
	redemptionservice "github.com/magabrotheeeer/salon-redemption-ledger/internal/services/redemption"
	subscriptionservice "github.com/magabrotheeeer/salon-redemption-ledger/internal/services/subscription"
	visitstatusservice "github.com/magabrotheeeer/salon-redemption-ledger/internal/services/visitstatus"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, parser *jwt.Parser, db *repository.Storage,
	redemptionService *redemptionservice.Service,
	visitStatusService *visitstatusservice.Service,
	subscriptionService *subscriptionservice.Service,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiters := middlewarectx.NewLimiterStore(rate.Limit(10), 20, 5*time.Minute)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки: чтение по QR и пометка истёкших
		r.Get("/subscriptions/qr/{token}", read.New(logger, subscriptionService).ServeHTTP)
		r.Post("/subscriptions/expire", expire.New(logger, subscriptionService).ServeHTTP)

		// Группа с аутентификацией актора
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.ActorMiddleware(parser, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiters))
			r.Post("/redeem", redeem.New(logger, redemptionService).ServeHTTP)
			r.Post("/visits/{id}/status", transition.New(logger, visitStatusService).ServeHTTP)
			r.Post("/subscriptions", purchase.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", cancel.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/{id}/visits", list.New(logger, subscriptionService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, db.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
