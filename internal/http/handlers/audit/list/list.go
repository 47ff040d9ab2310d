// Package list отдаёт журнал аудита администраторам, новые записи первыми.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Repository читает журнал аудита.
type Repository interface {
	ListAudit(ctx context.Context, limit, offset int) ([]models.AuditEntry, error)
}

// Handler обрабатывает GET /admin/audit.
type Handler struct {
	log  *slog.Logger
	repo Repository
}

// New создает новый Handler.
func New(log *slog.Logger, repo Repository) *Handler {
	return &Handler{log: log, repo: repo}
}

// ServeHTTP godoc
// @Summary Журнал аудита
// @Tags Admin
// @Produce  json
// @Param limit query int false "Размер страницы, не больше 200"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response "Записи аудита"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /admin/audit [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.audit.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset := defaultLimit, 0
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("limit must be a positive number"))
			return
		}
		limit = min(v, maxLimit)
	}
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("offset must be a non-negative number"))
			return
		}
		offset = v
	}

	entries, err := h.repo.ListAudit(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list audit log", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}

	render.JSON(w, r, response.OKWithData(entries))
}
