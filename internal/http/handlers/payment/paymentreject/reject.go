// Package paymentreject реализует отклонение платежа администратором.
// Причина отклонения обязательна; подписка не меняется.
package paymentreject

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

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
	Notes string `json:"notes"`
}

// Service описывает отклонение платежа.
type Service interface {
	Reject(ctx context.Context, actor models.Actor, paymentID int64, notes string, now time.Time) (*models.Payment, error)
}

// Handler обрабатывает POST /admin/payments/{id}/reject.
type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, now: time.Now}
}

// ServeHTTP godoc
// @Summary Отклонить платёж
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path int true "ID платежа"
// @Param request body Request true "Причина отклонения"
// @Success 200 {object} response.Response "Отклонённый платёж"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 409 {object} response.ErrorResponse "Платёж уже обработан"
// @Failure 422 {object} response.ErrorResponse "Не указана причина"
// @Security BearerAuth
// @Router /admin/payments/{id}/reject [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.reject"
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

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payment id"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	p, err := h.service.Reject(r.Context(), actor, id, req.Notes, h.now().UTC())
	if err != nil {
		log.Error("failed to reject payment", slog.Int64("payment_id", id), sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}

	log.Info("payment rejected", slog.Int64("payment_id", id))
	render.JSON(w, r, response.OKWithData(p))
}
