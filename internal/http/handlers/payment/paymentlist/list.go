// Package paymentlist отдаёт список платежей. Администратор видит все платежи
// и может фильтровать по учётной записи; остальные видят только свои.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// Service описывает выборку платежей.
type Service interface {
	List(ctx context.Context, actor models.Actor, filter models.PaymentFilter) ([]models.Payment, error)
}

// Handler обрабатывает GET /payments и GET /admin/payments.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список платежей
// @Tags Payments
// @Produce  json
// @Param status query string false "pending, approved или rejected"
// @Param account_id query string false "Только для администратора"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response "Платежи"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 422 {object} response.ErrorResponse "Неизвестный статус"
// @Security BearerAuth
// @Router /payments [get]
// @Router /admin/payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"
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

	q := r.URL.Query()
	var filter models.PaymentFilter
	if s := q.Get("status"); s != "" {
		status := models.PaymentStatus(s)
		filter.Status = &status
	}
	if a := q.Get("account_id"); a != "" {
		filter.AccountID = &a
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("limit must be a number"))
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("offset must be a number"))
		return
	}

	payments, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}

	render.JSON(w, r, response.OKWithData(payments))
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
