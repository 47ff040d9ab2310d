package cancel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Cancel(ctx context.Context, actor models.Actor, id int64, now time.Time) (*models.Subscription, error) {
	args := m.Called(ctx, actor, id, now)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func TestCancelHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	admin := models.Actor{ID: "adm-1", Role: models.RoleSuperAdmin}

	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "отмена",
			id:   "9",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, admin, int64(9), now).Return(&models.Subscription{
					ID: 9, Status: models.SubscriptionExpired, ExpiresAt: &now,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"expired"`,
		},
		{
			name: "не найдена",
			id:   "10",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, admin, int64(10), now).
					Return(nil, fmt.Errorf("subscription.Cancel: %w", models.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "not found",
		},
		{
			name:           "некорректный id",
			id:             "-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid subscription id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			h := New(logger, svc)
			h.now = func() time.Time { return now }

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subscriptions/"+tt.id+"/cancel", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req.WithContext(middlewarectx.WithActor(ctx, admin)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
