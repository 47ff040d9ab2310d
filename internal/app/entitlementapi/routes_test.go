package entitlementapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/health"
	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/jwt"
	"github.com/magabrotheeeer/entitlement-core/internal/metrics"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
	"github.com/magabrotheeeer/entitlement-core/internal/services/auth"
	"github.com/magabrotheeeer/entitlement-core/internal/services/publicgate"
)

type noArtifacts struct{}

func (noArtifacts) GetPublishedArtifact(context.Context, string) (*models.Artifact, error) {
	return nil, models.ErrNotFound
}

type accountsStub map[string]models.Account

func (a accountsStub) CreateAccount(context.Context, models.Account) error { return nil }

func (a accountsStub) GetAccountByUsername(context.Context, string) (*models.Account, error) {
	return nil, models.ErrNotFound
}

func (a accountsStub) GetAccount(_ context.Context, id string) (*models.Account, error) {
	acc, ok := a[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &acc, nil
}

type auditStub struct{}

func (auditStub) ListAudit(context.Context, int, int) ([]models.AuditEntry, error) {
	return []models.AuditEntry{{ID: 1, Action: models.AuditPaymentApprove}}, nil
}

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *jwt.MakerImpl) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	r := chi.NewRouter()
	RegisterRoutes(r, logger, Deps{
		Auth: auth.NewService(accountsStub{
			"acc-1": {ID: "acc-1", Role: models.RoleStandard, Active: true},
			"adm-1": {ID: "adm-1", Role: models.RoleAdmin, Active: true},
			"adm-2": {ID: "adm-2", Role: models.RoleStandard, Active: true},
			"adm-3": {ID: "adm-3", Role: models.RoleAdmin, Active: false},
		}, maker, logger),
		Gate:          publicgate.New(noArtifacts{}, nil, m, logger),
		Audit:         auditStub{},
		Health:        map[string]health.Pinger{"postgres": pingOK{}},
		Metrics:       m,
		Gatherer:      registry,
		PublicLimiter: middlewarectx.NewRateLimiter(100, 100, 1, 1),
	})
	return r, maker
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoutes_AdminGroup(t *testing.T) {
	h, maker := newTestRouter(t)

	standard, err := maker.GenerateToken("acc-1", "alice", string(models.RoleStandard))
	require.NoError(t, err)
	admin, err := maker.GenerateToken("adm-1", "root", string(models.RoleAdmin))
	require.NoError(t, err)
	demoted, err := maker.GenerateToken("adm-2", "former", string(models.RoleAdmin))
	require.NoError(t, err)
	disabled, err := maker.GenerateToken("adm-3", "disabled", string(models.RoleAdmin))
	require.NoError(t, err)
	unknown, err := maker.GenerateToken("ghost", "ghost", string(models.RoleAdmin))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "без токена", token: "", status: http.StatusUnauthorized},
		{name: "битый токен", token: "garbage", status: http.StatusUnauthorized},
		{name: "обычный клиент", token: standard, status: http.StatusForbidden},
		{name: "понижен после выдачи токена", token: demoted, status: http.StatusForbidden},
		{name: "отключён после выдачи токена", token: disabled, status: http.StatusForbidden},
		{name: "учётная запись удалена", token: unknown, status: http.StatusUnauthorized},
		{name: "администратор", token: admin, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, "/api/v1/admin/audit", tt.token)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestRoutes_PublicPageRateLimited(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/p/unknown", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/p/unknown", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "entitlement_http_requests_total"))
}

func TestRoutes_NotFound(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
