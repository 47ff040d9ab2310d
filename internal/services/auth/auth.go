// Package auth регистрирует учётные записи и выдаёт токены доступа.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/entitlement-core/internal/lib/jwt"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/password"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// ErrInvalidCredentials неверное имя пользователя или пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountRepository хранилище учётных записей.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

// Service регистрация и вход.
type Service struct {
	accounts AccountRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewService создаёт Service.
func NewService(accounts AccountRepository, jwtMaker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// RegisterRequest данные новой учётной записи.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Label    string `json:"label,omitempty" validate:"omitempty,max=128"`
}

// Register создаёт активную учётную запись с ролью standard.
// CreatedAt = now, от него отсчитывается пробный период.
func (s *Service) Register(ctx context.Context, req RegisterRequest, now time.Time) (*models.Account, error) {
	const op = "auth.Register"

	hash, err := password.GetHash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return nil, fmt.Errorf("%s: %w: %w", op, models.ErrInvariantViolation, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account := models.Account{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Label:        strings.TrimSpace(req.Label),
		PasswordHash: hash,
		Role:         models.RoleStandard,
		Active:       true,
		CreatedAt:    now,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("account registered", slog.String("account_id", account.ID))
	return &account, nil
}

// Login проверяет пароль и возвращает токен доступа вместе с учётной записью.
// Выключенная учётная запись может войти: доступ к сервисам решает вычисление доступа.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (string, *models.Account, error) {
	const op = "auth.Login"

	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(account.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.jwtMaker.GenerateToken(account.ID, account.Username, string(account.Role))
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, account, nil
}

// Authenticate разбирает токен и возвращает действующее лицо. Роль и флаг
// активности берутся из учётной записи, поэтому понижение или отключение
// администратора действует сразу, не дожидаясь истечения токена.
func (s *Service) Authenticate(ctx context.Context, token string) (models.Actor, error) {
	const op = "auth.Authenticate"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%s: %w", op, err)
	}
	account, err := s.accounts.GetAccount(ctx, claims.AccountID)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Actor{ID: account.ID, Role: account.Role, Active: account.Active}, nil
}
