// Package paymentapprove реализует одобрение платежа администратором.
//
// Одобрение атомарно: платёж переходит в approved, а подписка продлевается
// в одной транзакции. Повторное одобрение возвращает 409.
package paymentapprove

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
	"github.com/magabrotheeeer/entitlement-core/internal/services/payment"
)

// Service описывает одобрение платежа.
type Service interface {
	Approve(ctx context.Context, actor models.Actor, paymentID int64, opts payment.ApproveOptions, now time.Time) (*payment.ApproveResult, error)
}

// Handler обрабатывает POST /admin/payments/{id}/approve.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	now      func() time.Time
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		now:      time.Now,
	}
}

// ServeHTTP godoc
// @Summary Одобрить платёж
// @Description Одобряет платёж и продлевает подписку. Без тела продление равно расчётному периоду плана.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path int true "ID платежа"
// @Param request body payment.ApproveOptions false "Период продления"
// @Success 200 {object} response.Response "Платёж и подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 409 {object} response.ErrorResponse "Платёж уже обработан"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /admin/payments/{id}/approve [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.approve"
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

	var opts payment.ApproveOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if opts.Extension != nil {
		if err := h.validate.Struct(opts.Extension); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, response.ValidationError(verrs))
				return
			}
		}
	}

	res, err := h.service.Approve(r.Context(), actor, id, opts, h.now().UTC())
	if err != nil {
		log.Error("failed to approve payment", slog.Int64("payment_id", id), sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}

	log.Info("payment approved", slog.Int64("payment_id", id), slog.Int64("subscription_id", res.Subscription.ID))
	render.JSON(w, r, response.OKWithData(res))
}
