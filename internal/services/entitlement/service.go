package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// AccountRepository читает учётные записи.
type AccountRepository interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

// ServiceRepository читает каталог сервисов.
type ServiceRepository interface {
	GetServiceBySlug(ctx context.Context, slug string) (*models.Service, error)
	IsServiceActive(ctx context.Context, id int64) (bool, error)
}

// SubscriptionRepository читает историю подписок.
type SubscriptionRepository interface {
	ListSubscriptionsFor(ctx context.Context, accountID string, serviceID int64) ([]models.Subscription, error)
}

// Cache кэш каталога сервисов. Решения о доступе не кэшируются.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Recorder учитывает вычисленные решения в метриках.
type Recorder interface {
	ObserveResolution(kind string)
}

const catalogTTL = 10 * time.Minute

// Service вычисляет доступ по данным хранилища.
type Service struct {
	accounts      AccountRepository
	services      ServiceRepository
	subscriptions SubscriptionRepository
	cache         Cache
	metrics       Recorder
	trialDuration time.Duration
	log           *slog.Logger
}

// NewService создаёт Service. cache и metrics могут быть nil.
func NewService(accounts AccountRepository, services ServiceRepository, subscriptions SubscriptionRepository,
	cache Cache, metrics Recorder, trialDuration time.Duration, log *slog.Logger) *Service {
	return &Service{
		accounts:      accounts,
		services:      services,
		subscriptions: subscriptions,
		cache:         cache,
		metrics:       metrics,
		trialDuration: trialDuration,
		log:           log,
	}
}

// TrialDuration возвращает настроенную длительность пробного периода.
func (s *Service) TrialDuration() time.Duration {
	return s.trialDuration
}

// Resolve вычисляет доступ учётной записи accountID к сервису serviceSlug в момент now.
// Неизвестный slug сервиса даёт models.ErrNotFound, отсутствующая учётная запись даёт статус NoAccount.
func (s *Service) Resolve(ctx context.Context, accountID, serviceSlug string, now time.Time) (AccessStatus, error) {
	const op = "entitlement.Resolve"

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return AccessStatus{}, fmt.Errorf("%s: %w", op, err)
		}
		account = nil
	}
	if account == nil || !account.Active {
		status := Evaluate(Input{Account: account}, now)
		s.observe(status)
		return status, nil
	}

	svc, err := s.service(ctx, serviceSlug)
	if err != nil {
		return AccessStatus{}, fmt.Errorf("%s: %w", op, err)
	}
	if !svc.IsActive {
		status := AccessStatus{Kind: NoAccess}
		s.observe(status)
		return status, nil
	}

	subs, err := s.subscriptions.ListSubscriptionsFor(ctx, account.ID, svc.ID)
	if err != nil {
		return AccessStatus{}, fmt.Errorf("%s: %w", op, err)
	}

	status := Evaluate(Input{
		Account:       account,
		Subscriptions: subs,
		TrialDuration: s.trialDuration,
	}, now)
	s.observe(status)
	return status, nil
}

// service читает сервис каталога. Флаг IsActive у закэшированной записи
// перечитывается из хранилища, чтобы отключение сервиса действовало сразу.
func (s *Service) service(ctx context.Context, slug string) (*models.Service, error) {
	cacheKey := fmt.Sprintf("service:slug:%s", slug)
	if s.cache != nil {
		var cached models.Service
		found, err := s.cache.Get(cacheKey, &cached)
		if err != nil {
			s.log.Warn("failed to read service from cache", slog.String("key", cacheKey), sl.Err(err))
		}
		if found {
			active, err := s.services.IsServiceActive(ctx, cached.ID)
			if err != nil {
				return nil, err
			}
			cached.IsActive = active
			return &cached, nil
		}
	}

	svc, err := s.services.GetServiceBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(cacheKey, svc, catalogTTL); err != nil {
			s.log.Warn("failed to cache service", slog.String("key", cacheKey), sl.Err(err))
		}
	}
	return svc, nil
}

func (s *Service) observe(status AccessStatus) {
	if s.metrics != nil {
		s.metrics.ObserveResolution(string(status.Kind))
	}
}
