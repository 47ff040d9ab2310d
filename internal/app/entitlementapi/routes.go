package entitlementapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// swagger-описание API
	_ "github.com/magabrotheeeer/entitlement-core/docs"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/account/active"
	auditlist "github.com/magabrotheeeer/entitlement-core/internal/http/handlers/audit/list"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/entitlement/status"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/health"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/payment/paymentapprove"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/payment/paymentreject"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/public/view"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/subscription/defaultexpiry"
	sublist "github.com/magabrotheeeer/entitlement-core/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/metrics"
	"github.com/magabrotheeeer/entitlement-core/internal/services/auth"
	"github.com/magabrotheeeer/entitlement-core/internal/services/entitlement"
	"github.com/magabrotheeeer/entitlement-core/internal/services/payment"
	"github.com/magabrotheeeer/entitlement-core/internal/services/publicgate"
	"github.com/magabrotheeeer/entitlement-core/internal/services/subscription"
)

// Deps зависимости HTTP-слоя.
type Deps struct {
	Auth          *auth.Service
	Entitlement   *entitlement.Service
	Subscriptions *subscription.Manager
	Payments      *payment.Service
	Gate          *publicgate.Gate
	Audit         auditlist.Repository
	Health        map[string]health.Pinger
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	PublicLimiter *middlewarectx.RateLimiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		d.Metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", register.New(logger, d.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, d.Auth).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Auth, logger))

			r.Get("/entitlements/{service}", status.New(logger, d.Entitlement).ServeHTTP)
			r.Get("/subscriptions", sublist.New(logger, d.Subscriptions).ServeHTTP)
			r.Post("/payments", paymentcreate.New(logger, d.Payments).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, d.Payments).ServeHTTP)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(logger))

				r.Post("/subscriptions", create.New(logger, d.Subscriptions).ServeHTTP)
				r.Get("/subscriptions/default-expiry", defaultexpiry.New(logger, d.Subscriptions).ServeHTTP)
				r.Patch("/subscriptions/{id}", update.New(logger, d.Subscriptions).ServeHTTP)
				r.Post("/subscriptions/{id}/cancel", cancel.New(logger, d.Subscriptions).ServeHTTP)
				r.Put("/accounts/{id}/active", active.New(logger, d.Subscriptions).ServeHTTP)
				r.Get("/payments", paymentlist.New(logger, d.Payments).ServeHTTP)
				r.Post("/payments/{id}/approve", paymentapprove.New(logger, d.Payments).ServeHTTP)
				r.Post("/payments/{id}/reject", paymentreject.New(logger, d.Payments).ServeHTTP)
				r.Get("/audit", auditlist.New(logger, d.Audit).ServeHTTP)
			})
		})
	})

	r.With(middlewarectx.RateLimitMiddleware(d.PublicLimiter, logger)).
		Get("/p/{slug}", view.New(logger, d.Gate).ServeHTTP)

	r.Get("/health", health.New(logger, d.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
