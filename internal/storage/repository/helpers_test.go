package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/entitlement-core/internal/migrations"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test, needs docker")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err)
	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(storage))

	cleanup := func() {
		_ = storage.DB.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory создаёт тестовые данные напрямую через Storage.
type TestDataFactory struct {
	storage *Storage
}

func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

func (f *TestDataFactory) CreateAccount(t *testing.T, username string, role models.Role, createdAt time.Time) models.Account {
	t.Helper()
	account := models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hashed",
		Role:         role,
		Active:       true,
		CreatedAt:    createdAt,
	}
	require.NoError(t, f.storage.CreateAccount(context.Background(), account))
	return account
}

func (f *TestDataFactory) Service(t *testing.T, slug string) *models.Service {
	t.Helper()
	svc, err := f.storage.GetServiceBySlug(context.Background(), slug)
	require.NoError(t, err)
	return svc
}

func (f *TestDataFactory) CreateSubscription(t *testing.T, sub models.Subscription) models.Subscription {
	t.Helper()
	id, err := f.storage.CreateSubscription(context.Background(), sub)
	require.NoError(t, err)
	sub.ID = id
	return sub
}

func (f *TestDataFactory) CreatePayment(t *testing.T, p models.Payment) models.Payment {
	t.Helper()
	id, err := f.storage.CreatePayment(context.Background(), p)
	require.NoError(t, err)
	p.ID = id
	return p
}

func (f *TestDataFactory) CreateArtifact(t *testing.T, a models.Artifact) {
	t.Helper()
	_, err := f.storage.DB.Exec(`INSERT INTO artifacts
		(account_id, service_slug, slug, title, branding, content, contact_url, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.AccountID, a.ServiceSlug, a.Slug, a.Title, []byte(a.Branding), []byte(a.Content), a.ContactURL, a.Published)
	require.NoError(t, err)
}
