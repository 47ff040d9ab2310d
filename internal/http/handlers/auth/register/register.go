// Package register реализует HTTP-обработчик регистрации учётной записи.
//
// Handler принимает JSON с именем пользователя, почтой и паролем, валидирует его
// и создаёт учётную запись. С момента регистрации отсчитывается пробный период.
package register

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

	"github.com/magabrotheeeer/entitlement-core/internal/http/response"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
	"github.com/magabrotheeeer/entitlement-core/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, req auth.RegisterRequest, now time.Time) (*models.Account, error)
}

// AccountView учётная запись в ответе API, без хэша пароля.
type AccountView struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Label     string      `json:"label,omitempty"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// Handler обрабатывает HTTP-запросы на регистрацию.
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
// @Summary Регистрация учётной записи
// @Description Создаёт учётную запись с ролью standard. Пробный период начинается сразу.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body auth.RegisterRequest true "Данные учётной записи"
// @Success 201 {object} response.Response "Учётная запись создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Имя пользователя занято"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("username", req.Username))

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Warn("validation failed", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		log.Error("validator failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request"))
		return
	}

	account, err := h.service.Register(r.Context(), req, h.now().UTC())
	if err != nil {
		log.Error("failed to register account", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(response.MessageFor(err)))
		return
	}

	log.Info("account registered", slog.String("account_id", account.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(AccountView{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Label:     account.Label,
		Role:      account.Role,
		CreatedAt: account.CreatedAt,
	}))
}
