package paymentreject

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
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

func (m *MockService) Reject(ctx context.Context, actor models.Actor, paymentID int64, notes string, now time.Time) (*models.Payment, error) {
	args := m.Called(ctx, actor, paymentID, notes, now)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func TestRejectHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	admin := models.Actor{ID: "adm-1", Role: models.RoleAdmin}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "отклонение с причиной",
			body: `{"notes":"blurry receipt"}`,
			setupMock: func(m *MockService) {
				m.On("Reject", mock.Anything, admin, int64(7), "blurry receipt", now).Return(&models.Payment{
					ID: 7, Status: models.PaymentRejected, Notes: "blurry receipt",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"notes":"blurry receipt"`,
		},
		{
			name: "без причины",
			body: `{"notes":""}`,
			setupMock: func(m *MockService) {
				m.On("Reject", mock.Anything, admin, int64(7), "", now).
					Return(nil, fmt.Errorf("payment.Reject: %w: notes are required", models.ErrInvariantViolation))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "notes are required",
		},
		{
			name: "уже одобрен",
			body: `{"notes":"late"}`,
			setupMock: func(m *MockService) {
				m.On("Reject", mock.Anything, admin, int64(7), "late", now).
					Return(nil, fmt.Errorf("payment.Reject: %w", models.ErrAlreadyProcessed))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "already processed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			h := New(logger, svc)
			h.now = func() time.Time { return now }

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/payments/7/reject", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "7")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req.WithContext(middlewarectx.WithActor(ctx, admin)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
