// Package entitlementapi собирает HTTP-сервис доступа: хранилище, кэш каталога,
// публикацию в RabbitMQ, метрики и маршруты.
package entitlementapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/entitlement-core/internal/cache"
	"github.com/magabrotheeeer/entitlement-core/internal/config"
	"github.com/magabrotheeeer/entitlement-core/internal/http/handlers/health"
	"github.com/magabrotheeeer/entitlement-core/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/jwt"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/metrics"
	"github.com/magabrotheeeer/entitlement-core/internal/migrations"
	"github.com/magabrotheeeer/entitlement-core/internal/services/auth"
	"github.com/magabrotheeeer/entitlement-core/internal/services/entitlement"
	"github.com/magabrotheeeer/entitlement-core/internal/services/payment"
	"github.com/magabrotheeeer/entitlement-core/internal/services/publicgate"
	"github.com/magabrotheeeer/entitlement-core/internal/services/subscription"
	"github.com/magabrotheeeer/entitlement-core/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-приложение со всеми зависимостями.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	cache     *cache.Cache
	amqpConn  *amqp.Connection
	publisher *rabbitmq.Publisher
}

// New подключается к зависимостям, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.DB.Close()
		return nil, err
	}
	if err = repository.CheckDatabaseReady(db); err != nil {
		_ = db.DB.Close()
		return nil, err
	}
	if version, dirty, err := migrations.Version(db.DB, cfg.MigrationsPath); err != nil {
		logger.Warn("failed to read schema version", sl.Err(err))
	} else {
		logger.Info("database schema ready", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.DB.Close()
		return nil, err
	}

	app := &App{logger: logger, db: db, cache: cacheRedis}

	var notifier payment.Notifier
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.close()
			return nil, err
		}
		app.amqpConn = conn
		exchange := cfg.RabbitMQ.Exchange
		if exchange == "" {
			exchange = rabbitmq.ExchangeNotifications
		}
		ch, err := rabbitmq.SetupChannel(conn, exchange, rabbitmq.GetNotificationQueues())
		if err != nil {
			app.close()
			return nil, err
		}
		app.publisher = rabbitmq.NewPublisher(ch, exchange)
		notifier = app.publisher
	} else {
		logger.Warn("rabbitmq url is empty, payment notifications disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := auth.NewService(db, jwtMaker, logger)
	entitlementService := entitlement.NewService(db, db, db, cacheRedis, m, cfg.TrialDuration, logger)
	subscriptionManager := subscription.NewManager(db, logger)
	paymentService := payment.NewService(db, notifier, m, cfg.DefaultCurrency, logger)
	gate := publicgate.New(db, entitlementService, m, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Auth:          authService,
		Entitlement:   entitlementService,
		Subscriptions: subscriptionManager,
		Payments:      paymentService,
		Gate:          gate,
		Audit:         db,
		Health:        map[string]health.Pinger{"postgres": db, "redis": cacheRedis},
		Metrics:       m,
		Gatherer:      registry,
		PublicLimiter: middlewarectx.NewRateLimiter(cfg.PublicRateLimit.RPS, cfg.PublicRateLimit.Burst,
			cfg.PublicRateLimit.PerIPRPS, cfg.PublicRateLimit.PerIPBurst),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close amqp channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Warn("failed to close amqp connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis client", sl.Err(err))
		}
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
