// Package view отдаёт публичную страницу опубликованного контента анонимным посетителям.
//
// Доступ владельца проверяется при каждом запросе. Без доступа страница отдаётся
// с заглушкой и кодом 200; причина посетителю не сообщается.
package view

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// Gate строит публичное представление.
type Gate interface {
	View(ctx context.Context, slug string, now time.Time) (*models.PublicView, error)
}

// Handler обрабатывает GET /p/{slug}.
type Handler struct {
	log  *slog.Logger
	gate Gate
	now  func() time.Time
}

// New создает новый Handler.
func New(log *slog.Logger, gate Gate) *Handler {
	return &Handler{log: log, gate: gate, now: time.Now}
}

// ServeHTTP godoc
// @Summary Публичная страница
// @Description Полный контент при действующем доступе владельца, иначе заглушка с оформлением.
// @Tags Public
// @Produce  json
// @Param slug path string true "Slug страницы"
// @Success 200 {object} models.PublicView "Страница или заглушка"
// @Failure 404 {object} response.ErrorResponse "Страница не найдена"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /p/{slug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.public.view"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	w.Header().Set("Cache-Control", "no-store")
	slug := chi.URLParam(r, "slug")

	page, err := h.gate.View(r.Context(), slug, h.now().UTC())
	if errors.Is(err, models.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("not found"))
		return
	}
	if err != nil {
		log.Error("failed to build public view", slog.String("slug", slug), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, page)
}
