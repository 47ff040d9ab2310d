// Package active реализует выключатель учётной записи. Выключенная учётная запись
// теряет доступ ко всем сервисам независимо от подписок.
package active

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// Request тело запроса.
type Request struct {
	Active *bool `json:"active"`
}

// Service описывает переключение учётной записи.
type Service interface {
	SetAccountActive(ctx context.Context, actor models.Actor, accountID string, active bool) error
}

// Handler обрабатывает PUT /admin/accounts/{id}/active.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Включить или выключить учётную запись
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path string true "ID учётной записи"
// @Param request body Request true "Новое значение"
// @Success 200 {object} response.Response "Значение сохранено"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 404 {object} response.ErrorResponse "Учётная запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /admin/accounts/{id}/active [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.active"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		log.Warn("invalid request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("field active is required"))
		return
	}

	accountID := chi.URLParam(r, "id")
	if err := h.service.SetAccountActive(r.Context(), actor, accountID, *req.Active); err != nil {
		log.Error("failed to set account active flag", slog.String("account_id", accountID), sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"account_id": accountID,
		"active":     *req.Active,
	}))
}
