// metrics.go — Prometheus метрики файлового релея.
// HTTP-метрики: fd_http_requests_total, fd_http_request_duration_seconds.
// Бизнес-метрики обновляются из сервисного слоя; метрики очистки
// регистрируются в пакете service рядом со sweeper'ом.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fd_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fd_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// FilesLive — текущее количество живых записей в реестре (gauge).
	FilesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fd_files_live",
			Help: "Текущее количество живых записей в реестре",
		},
	)

	// OperationsTotal — общее количество файловых операций.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fd_operations_total",
			Help: "Общее количество файловых операций",
		},
		[]string{"operation", "result"},
	)

	// EvictionsTotal — количество вытеснений истёкших записей
	// по источнику: sweep (фоновая очистка) или lazy (по обращению).
	EvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fd_evictions_total",
			Help: "Общее количество вытеснений истёкших записей",
		},
		[]string{"trigger"},
	)

	// CodeConflictsTotal — количество коллизий кодов при генерации.
	CodeConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fd_code_conflicts_total",
			Help: "Общее количество коллизий кодов выдачи",
		},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем код на {code} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет сегмент кода на {code} для предотвращения
// взрывного роста кардинальности метрик.
// /file/a1b2c3 → /file/{code}, /download/a1b2c3 → /download/{code}
func normalizePath(path string) string {
	switch {
	case path == "/upload", path == "/metrics",
		path == "/health/live", path == "/health/ready":
		return path
	case strings.HasPrefix(path, "/file/"):
		return "/file/{code}"
	case strings.HasPrefix(path, "/download/"):
		return "/download/{code}"
	}
	return path
}
