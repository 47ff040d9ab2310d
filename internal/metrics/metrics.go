// Package metrics содержит счётчики Prometheus для решений о доступе,
// платежей, публичных страниц и HTTP-запросов.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "entitlement"

// Metrics набор метрик сервиса.
type Metrics struct {
	resolutions  *prometheus.CounterVec
	payments     *prometheus.CounterVec
	publicViews  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Access decisions by resulting kind",
		}, []string{"kind"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment workflow events by resulting status",
		}, []string{"status"}),
		publicViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "public_views_total",
			Help:      "Public page views split by paywall substitution",
		}, []string{"paywalled"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(m.resolutions, m.payments, m.publicViews, m.httpRequests, m.httpDuration)
	return m
}

// ObserveResolution учитывает решение о доступе.
func (m *Metrics) ObserveResolution(kind string) {
	m.resolutions.WithLabelValues(kind).Inc()
}

// ObservePayment учитывает событие платежа: pending при подаче, approved или rejected при обработке.
func (m *Metrics) ObservePayment(status string) {
	m.payments.WithLabelValues(status).Inc()
}

// ObservePublicView учитывает показ публичной страницы.
func (m *Metrics) ObservePublicView(paywalled bool) {
	m.publicViews.WithLabelValues(strconv.FormatBool(paywalled)).Inc()
}

// Middleware считает запросы по шаблону маршрута chi, чтобы ID в путях не раздували метки.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
