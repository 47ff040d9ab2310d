package list

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListAudit(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	args := m.Called(ctx, limit, offset)
	entries, _ := args.Get(0).([]models.AuditEntry)
	return entries, args.Error(1)
}

func TestAuditListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockRepository)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "по умолчанию",
			query: "",
			setupMock: func(m *MockRepository) {
				m.On("ListAudit", mock.Anything, defaultLimit, 0).Return([]models.AuditEntry{{
					ID: 1, ActorID: "adm-1", Action: models.AuditPaymentApprove,
					TargetTable: "payments", TargetID: "7", Payload: json.RawMessage(`{"status":"approved"}`),
				}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"action":"payment.approve"`,
		},
		{
			name:  "лимит ограничен сверху",
			query: "?limit=1000&offset=5",
			setupMock: func(m *MockRepository) {
				m.On("ListAudit", mock.Anything, maxLimit, 5).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"data":[]`,
		},
		{
			name:           "некорректный offset",
			query:          "?offset=-1",
			setupMock:      func(_ *MockRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "offset must be a non-negative number",
		},
		{
			name:  "ошибка хранилища",
			query: "",
			setupMock: func(m *MockRepository) {
				m.On("ListAudit", mock.Anything, defaultLimit, 0).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit"+tt.query, nil)
			rec := httptest.NewRecorder()
			New(logger, repo).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			repo.AssertExpectations(t)
		})
	}
}
