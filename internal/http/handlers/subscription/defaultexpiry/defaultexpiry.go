// Package defaultexpiry предлагает дату окончания подписки для формы администратора.
package defaultexpiry

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// Service описывает расчёт даты окончания по плану.
type Service interface {
	DefaultExpiry(plan models.PlanType, from time.Time) (*time.Time, error)
}

// Handler обрабатывает GET /admin/subscriptions/default-expiry?plan=...&from=....
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
// @Summary Дата окончания по умолчанию
// @Description Предлагает дату окончания для плана. Для lifetime возвращает null.
// @Tags Admin
// @Produce  json
// @Param plan query string true "План: monthly, yearly, lifetime, trial"
// @Param from query string false "Начало в RFC3339, по умолчанию текущий момент"
// @Success 200 {object} response.Response "Предложенная дата"
// @Failure 400 {object} response.ErrorResponse "Некорректная дата"
// @Failure 422 {object} response.ErrorResponse "Неизвестный план"
// @Security BearerAuth
// @Router /admin/subscriptions/default-expiry [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.defaultexpiry"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	from := h.now().UTC()
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Warn("invalid from parameter", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("from must be RFC3339"))
			return
		}
		from = parsed.UTC()
	}

	plan := models.PlanType(r.URL.Query().Get("plan"))
	expires, err := h.service.DefaultExpiry(plan, from)
	if err != nil {
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"plan":       plan,
		"from":       from,
		"expires_at": expires,
	}))
}
