package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

type AuthenticatorMock struct {
	mock.Mock
}

func (m *AuthenticatorMock) Authenticate(ctx context.Context, token string) (models.Actor, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.Actor), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		token          string
		actor          models.Actor
		authErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "token validation error",
			authHeader:     "Bearer token",
			token:          "token",
			authErr:        errors.New("token is expired"),
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "valid token",
			authHeader:     "Bearer validtoken",
			token:          "validtoken",
			actor:          models.Actor{ID: "acc-1", Role: models.RoleStandard, Active: true},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthenticatorMock)
			if tt.token != "" {
				authMock.On("Authenticate", mock.Anything, tt.token).Return(tt.actor, tt.authErr).Once()
			}

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				actor, ok := middlewarectx.ActorFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, tt.actor, actor)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			middlewarectx.JWTMiddleware(authMock, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			authMock.AssertExpectations(t)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		actor    *models.Actor
		wantCode int
	}{
		{"no actor", nil, http.StatusUnauthorized},
		{"standard account", &models.Actor{ID: "acc-1", Role: models.RoleStandard, Active: true}, http.StatusForbidden},
		{"deactivated admin", &models.Actor{ID: "adm-2", Role: models.RoleAdmin, Active: false}, http.StatusForbidden},
		{"admin", &models.Actor{ID: "adm-1", Role: models.RoleAdmin, Active: true}, http.StatusNoContent},
		{"super-admin", &models.Actor{ID: "root", Role: models.RoleSuperAdmin, Active: true}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit", nil)
			if tt.actor != nil {
				req = req.WithContext(middlewarectx.WithActor(req.Context(), *tt.actor))
			}
			rec := httptest.NewRecorder()

			middlewarectx.RequireAdmin(newNoopLogger())(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
