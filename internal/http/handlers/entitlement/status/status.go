// Package status отдаёт решение о доступе текущей учётной записи к сервису
// и режим редакторов панели управления.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/services/entitlement"
)

// Resolver вычисляет доступ.
type Resolver interface {
	Resolve(ctx context.Context, accountID, serviceSlug string, now time.Time) (entitlement.AccessStatus, error)
}

// View тело ответа.
type View struct {
	Service          string                 `json:"service"`
	Kind             entitlement.Kind       `json:"kind"`
	EditorMode       entitlement.EditorMode `json:"editor_mode"`
	SubscriptionID   int64                  `json:"subscription_id,omitempty"`
	ExpiresAt        *time.Time             `json:"expires_at,omitempty"`
	RemainingSeconds int64                  `json:"remaining_seconds,omitempty"`
}

// Handler обрабатывает GET /entitlements/{service}.
type Handler struct {
	log      *slog.Logger
	resolver Resolver
	now      func() time.Time
}

// New создает новый Handler.
func New(log *slog.Logger, resolver Resolver) *Handler {
	return &Handler{log: log, resolver: resolver, now: time.Now}
}

// ServeHTTP godoc
// @Summary Статус доступа к сервису
// @Description Вычисляет доступ текущей учётной записи к сервису и режим редакторов.
// @Tags Entitlements
// @Produce  json
// @Param service path string true "Slug сервиса"
// @Success 200 {object} response.Response "Статус доступа"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Сервис не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /entitlements/{service} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actor, ok := middlewarectx.ActorFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	slug := chi.URLParam(r, "service")

	status, err := h.resolver.Resolve(r.Context(), actor.ID, slug, h.now().UTC())
	if err != nil {
		log.Error("failed to resolve entitlement", slog.String("service", slug), sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}

	log.Debug("entitlement resolved",
		slog.String("account_id", actor.ID),
		slog.String("service", slug),
		slog.String("kind", string(status.Kind)))
	render.JSON(w, r, response.OKWithData(View{
		Service:          slug,
		Kind:             status.Kind,
		EditorMode:       status.EditorMode(),
		SubscriptionID:   status.SubscriptionID,
		ExpiresAt:        status.ExpiresAt,
		RemainingSeconds: int64(status.Remaining / time.Second),
	}))
}
