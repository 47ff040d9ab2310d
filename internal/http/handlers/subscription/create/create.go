// Package create реализует административное создание записи подписки.
//
// Новая запись дополняет историю пары (учётная запись, сервис), прежние записи не меняются.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
	"github.com/magabrotheeeer/entitlement-core/internal/services/subscription"
)

// Request тело запроса. StartsAt по умолчанию — момент запроса.
type Request struct {
	AccountID string     `json:"account_id" validate:"required,uuid"`
	ServiceID int64      `json:"service_id" validate:"required,gt=0"`
	PlanType  string     `json:"plan_type" validate:"required,oneof=monthly yearly lifetime trial"`
	Status    string     `json:"status,omitempty" validate:"omitempty,oneof=pending active expired cancelled inactive"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Service описывает создание подписки.
type Service interface {
	Create(ctx context.Context, actor models.Actor, req subscription.CreateRequest) (*models.Subscription, error)
}

// Handler обрабатывает POST /admin/subscriptions.
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
// @Summary Создать подписку
// @Description Добавляет запись подписки. Для неограниченных планов дата окончания заполняется по плану.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные подписки"
// @Success 201 {object} response.Response "Подписка создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 404 {object} response.ErrorResponse "Учётная запись или сервис не найдены"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /admin/subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
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
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Warn("validation failed", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request"))
		return
	}

	startsAt := h.now().UTC()
	if req.StartsAt != nil {
		startsAt = req.StartsAt.UTC()
	}

	sub, err := h.service.Create(r.Context(), actor, subscription.CreateRequest{
		AccountID: req.AccountID,
		ServiceID: req.ServiceID,
		PlanType:  models.PlanType(req.PlanType),
		Status:    models.SubscriptionStatus(req.Status),
		StartsAt:  startsAt,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		log.Error("failed to create subscription", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}

	log.Info("subscription created", slog.Int64("id", sub.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sub))
}
