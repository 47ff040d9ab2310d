package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
	"github.com/magabrotheeeer/entitlement-core/internal/services/entitlement"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*models.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetServiceByID(ctx context.Context, id int64) (*models.Service, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*models.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) LockSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		sub := *res.(*models.Subscription)
		return &sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockRepository) ListSubscriptionsByAccount(ctx context.Context, accountID string) ([]models.Subscription, error) {
	args := m.Called(ctx, accountID)
	if res := args.Get(0); res != nil {
		return res.([]models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) SetAccountActive(ctx context.Context, id string, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *MockRepository) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

// InTx выполняет fn сразу: транзакцию в тестах заменяет сам мок.
func (m *MockRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var (
	admin    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	customer = models.Actor{ID: "acc-1", Role: models.RoleStandard}
	t0       = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

func auditWith(action string) any {
	return mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.Action == action && e.ActorID == admin.ID
	})
}

func TestManager_Create(t *testing.T) {
	tests := []struct {
		name       string
		actor      models.Actor
		req        CreateRequest
		setupMocks func(*MockRepository)
		wantErr    error
		check      func(*testing.T, *models.Subscription)
	}{
		{
			name:  "monthly gets default expiry",
			actor: admin,
			req: CreateRequest{
				AccountID: "acc-1", ServiceID: 2, PlanType: models.PlanMonthly,
				Status: models.SubscriptionActive, StartsAt: t0,
			},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("GetAccount", mock.Anything, "acc-1").Return(&models.Account{ID: "acc-1"}, nil).Once()
				r.On("GetServiceByID", mock.Anything, int64(2)).Return(&models.Service{ID: 2}, nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.ExpiresAt != nil && s.ExpiresAt.Equal(t0.AddDate(0, 1, 0))
				})).Return(int64(11), nil).Once()
				r.On("AppendAudit", mock.Anything, auditWith(models.AuditSubscriptionCreate)).Return(nil).Once()
			},
			check: func(t *testing.T, s *models.Subscription) {
				assert.Equal(t, int64(11), s.ID)
				assert.Equal(t, models.SubscriptionActive, s.Status)
			},
		},
		{
			name:  "lifetime without expiry, status defaults to pending",
			actor: admin,
			req:   CreateRequest{AccountID: "acc-1", ServiceID: 2, PlanType: models.PlanLifetime, StartsAt: t0},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("GetAccount", mock.Anything, "acc-1").Return(&models.Account{ID: "acc-1"}, nil).Once()
				r.On("GetServiceByID", mock.Anything, int64(2)).Return(&models.Service{ID: 2}, nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.Anything).Return(int64(12), nil).Once()
				r.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Once()
			},
			check: func(t *testing.T, s *models.Subscription) {
				assert.Nil(t, s.ExpiresAt)
				assert.Equal(t, models.SubscriptionPending, s.Status)
			},
		},
		{
			name:  "lifetime with expiry is rejected",
			actor: admin,
			req: CreateRequest{
				AccountID: "acc-1", ServiceID: 2, PlanType: models.PlanLifetime,
				StartsAt: t0, ExpiresAt: ptrTime(t0.AddDate(1, 0, 0)),
			},
			setupMocks: func(*MockRepository) {},
			wantErr:    models.ErrInvariantViolation,
		},
		{
			name:  "expiry before start is rejected",
			actor: admin,
			req: CreateRequest{
				AccountID: "acc-1", ServiceID: 2, PlanType: models.PlanMonthly,
				StartsAt: t0, ExpiresAt: ptrTime(t0.Add(-time.Hour)),
			},
			setupMocks: func(*MockRepository) {},
			wantErr:    models.ErrInvariantViolation,
		},
		{
			name:       "non-admin",
			actor:      customer,
			req:        CreateRequest{AccountID: "acc-1", ServiceID: 2, PlanType: models.PlanMonthly, StartsAt: t0},
			setupMocks: func(*MockRepository) {},
			wantErr:    models.ErrUnauthorized,
		},
		{
			name:  "unknown account",
			actor: admin,
			req:   CreateRequest{AccountID: "missing", ServiceID: 2, PlanType: models.PlanMonthly, StartsAt: t0},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("GetAccount", mock.Anything, "missing").Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)
			m := NewManager(repo, newNoopLogger())

			got, err := m.Create(context.Background(), tt.actor, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				tt.check(t, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestManager_ExtendOrEdit(t *testing.T) {
	now := t0.AddDate(0, 0, 20)
	existing := &models.Subscription{
		ID: 5, AccountID: "acc-1", ServiceID: 2, PlanType: models.PlanMonthly,
		Status: models.SubscriptionActive, StartsAt: t0, ExpiresAt: ptrTime(t0.AddDate(0, 1, 0)),
	}
	lifetime := models.PlanLifetime
	pending := models.SubscriptionPending
	cancelled := models.SubscriptionCancelled

	tests := []struct {
		name       string
		actor      models.Actor
		patch      Patch
		setupMocks func(*MockRepository)
		wantErr    error
		check      func(*testing.T, *models.Subscription)
	}{
		{
			name:  "extend expiry",
			actor: admin,
			patch: Patch{ExpiresAt: ptrTime(t0.AddDate(0, 2, 0))},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("LockSubscription", mock.Anything, int64(5)).Return(existing, nil).Once()
				r.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.ExpiresAt.Equal(t0.AddDate(0, 2, 0)) && *s.RenewedBy == admin.ID && s.RenewedAt.Equal(now)
				})).Return(nil).Once()
				r.On("AppendAudit", mock.Anything, auditWith(models.AuditSubscriptionEdit)).Return(nil).Once()
			},
			check: func(t *testing.T, s *models.Subscription) {
				assert.True(t, s.ExpiresAt.Equal(t0.AddDate(0, 2, 0)))
				assert.Equal(t, models.SubscriptionActive, s.Status)
			},
		},
		{
			name:  "switch to lifetime clears expiry",
			actor: admin,
			patch: Patch{PlanType: &lifetime, ClearExpiry: true},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("LockSubscription", mock.Anything, int64(5)).Return(existing, nil).Once()
				r.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Once()
				r.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Once()
			},
			check: func(t *testing.T, s *models.Subscription) {
				assert.Nil(t, s.ExpiresAt)
				assert.Equal(t, models.PlanLifetime, s.PlanType)
			},
		},
		{
			name:  "lifetime keeping expiry violates invariant",
			actor: admin,
			patch: Patch{PlanType: &lifetime},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("LockSubscription", mock.Anything, int64(5)).Return(existing, nil).Once()
			},
			wantErr: models.ErrInvariantViolation,
		},
		{
			name:  "back to pending is not allowed",
			actor: admin,
			patch: Patch{Status: &pending},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("LockSubscription", mock.Anything, int64(5)).Return(existing, nil).Once()
			},
			wantErr: models.ErrInvariantViolation,
		},
		{
			name:  "cancel via status",
			actor: admin,
			patch: Patch{Status: &cancelled},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("LockSubscription", mock.Anything, int64(5)).Return(existing, nil).Once()
				r.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Once()
				r.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Once()
			},
			check: func(t *testing.T, s *models.Subscription) {
				assert.Equal(t, models.SubscriptionCancelled, s.Status)
			},
		},
		{
			name:       "empty patch",
			actor:      admin,
			patch:      Patch{},
			setupMocks: func(*MockRepository) {},
			wantErr:    models.ErrInvariantViolation,
		},
		{
			name:       "expiry and clear together",
			actor:      admin,
			patch:      Patch{ExpiresAt: ptrTime(now), ClearExpiry: true},
			setupMocks: func(*MockRepository) {},
			wantErr:    models.ErrInvariantViolation,
		},
		{
			name:       "non-admin",
			actor:      customer,
			patch:      Patch{ExpiresAt: ptrTime(now)},
			setupMocks: func(*MockRepository) {},
			wantErr:    models.ErrUnauthorized,
		},
		{
			name:  "missing subscription",
			actor: admin,
			patch: Patch{ExpiresAt: ptrTime(now)},
			setupMocks: func(r *MockRepository) {
				r.On("InTx", mock.Anything).Once()
				r.On("LockSubscription", mock.Anything, int64(5)).Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)
			m := NewManager(repo, newNoopLogger())

			got, err := m.ExtendOrEdit(context.Background(), tt.actor, 5, tt.patch, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				tt.check(t, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestManager_Cancel(t *testing.T) {
	now := t0.AddDate(0, 0, 10)
	existing := &models.Subscription{
		ID: 5, AccountID: "acc-1", ServiceID: 2, PlanType: models.PlanMonthly,
		Status: models.SubscriptionActive, StartsAt: t0, ExpiresAt: ptrTime(t0.AddDate(0, 1, 0)),
	}

	t.Run("expires immediately", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("InTx", mock.Anything).Once()
		repo.On("LockSubscription", mock.Anything, int64(5)).Return(existing, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
			return s.Status == models.SubscriptionExpired && s.ExpiresAt.Equal(now)
		})).Return(nil).Once()
		repo.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
			var payload map[string]any
			if err := json.Unmarshal(e.Payload, &payload); err != nil {
				return false
			}
			return e.Action == models.AuditSubscriptionCancel && e.TargetID == "5" &&
				payload["previous_status"] == string(models.SubscriptionActive)
		})).Return(nil).Once()

		got, err := NewManager(repo, newNoopLogger()).Cancel(context.Background(), admin, 5, now)
		require.NoError(t, err)
		assert.False(t, got.CurrentAt(now))
		repo.AssertExpectations(t)
	})

	t.Run("audit failure rolls back", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("InTx", mock.Anything).Once()
		repo.On("LockSubscription", mock.Anything, int64(5)).Return(existing, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("AppendAudit", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		got, err := NewManager(repo, newNoopLogger()).Cancel(context.Background(), admin, 5, now)
		assert.Error(t, err)
		assert.Nil(t, got)
		repo.AssertExpectations(t)
	})

	t.Run("non-admin", func(t *testing.T) {
		repo := new(MockRepository)
		_, err := NewManager(repo, newNoopLogger()).Cancel(context.Background(), customer, 5, now)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		repo.AssertNotCalled(t, "LockSubscription", mock.Anything, mock.Anything)
	})
}

func TestManager_SetAccountActive(t *testing.T) {
	t.Run("deactivate", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("InTx", mock.Anything).Once()
		repo.On("SetAccountActive", mock.Anything, "acc-1", false).Return(nil).Once()
		repo.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
			return e.Action == models.AuditAccountActive && e.TargetTable == "accounts" && e.TargetID == "acc-1"
		})).Return(nil).Once()

		err := NewManager(repo, newNoopLogger()).SetAccountActive(context.Background(), admin, "acc-1", false)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("missing account", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("InTx", mock.Anything).Once()
		repo.On("SetAccountActive", mock.Anything, "nope", true).Return(models.ErrNotFound).Once()

		err := NewManager(repo, newNoopLogger()).SetAccountActive(context.Background(), admin, "nope", true)
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertExpectations(t)
	})

	t.Run("non-admin", func(t *testing.T) {
		err := NewManager(new(MockRepository), newNoopLogger()).SetAccountActive(context.Background(), customer, "acc-1", false)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestManager_ListForAccount(t *testing.T) {
	repo := new(MockRepository)
	history := []models.Subscription{{ID: 1}, {ID: 2}}
	repo.On("ListSubscriptionsByAccount", mock.Anything, "acc-1").Return(history, nil).Once()

	got, err := NewManager(repo, newNoopLogger()).ListForAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	repo.AssertExpectations(t)
}

func TestManager_DefaultExpiry(t *testing.T) {
	m := NewManager(new(MockRepository), newNoopLogger())
	from := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	got, err := m.DefaultExpiry(models.PlanYearly, from)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, from.AddDate(1, 0, 0), *got)

	got, err = m.DefaultExpiry(models.PlanLifetime, from)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = m.DefaultExpiry(models.PlanType("weekly"), from)
	assert.ErrorIs(t, err, models.ErrInvariantViolation)
}

func TestManager_Cancel_RevokesAccessOnNextResolve(t *testing.T) {
	now := t0.AddDate(0, 0, 10)
	account := &models.Account{ID: "acc-1", Role: models.RoleStandard, Active: true, CreatedAt: t0}
	record := models.Subscription{
		ID: 5, AccountID: "acc-1", ServiceID: 2, PlanType: models.PlanMonthly,
		Status: models.SubscriptionActive, StartsAt: t0, ExpiresAt: ptrTime(t0.AddDate(0, 1, 0)),
	}

	before := entitlement.Evaluate(entitlement.Input{
		Account:       account,
		Subscriptions: []models.Subscription{record},
		TrialDuration: 3 * 24 * time.Hour,
	}, now)
	require.Equal(t, entitlement.ActiveSubscription, before.Kind)

	locked := record
	repo := new(MockRepository)
	repo.On("InTx", mock.Anything).Once()
	repo.On("LockSubscription", mock.Anything, int64(5)).Return(&locked, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Once()

	cancelled, err := NewManager(repo, newNoopLogger()).Cancel(context.Background(), admin, 5, now)
	require.NoError(t, err)

	after := entitlement.Evaluate(entitlement.Input{
		Account:       account,
		Subscriptions: []models.Subscription{*cancelled},
		TrialDuration: 3 * 24 * time.Hour,
	}, now)
	assert.False(t, after.Granted())
	assert.Equal(t, entitlement.Expired, after.Kind)
	repo.AssertExpectations(t)
}
