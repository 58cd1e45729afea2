package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"hookah_loyalty_bot/pkg/metrics"
)

// PrometheusMiddleware добавляет метрики Prometheus для HTTP запросов
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Создаем ResponseWriter для захвата статус-кода
		wrappedWriter := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrappedWriter, r)

		// Меткой служит маршрут без ID пользователя, чтобы не плодить
		// серию метрик на каждый tg_id
		endpoint := normalizeEndpoint(r.URL.Path)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrappedWriter.statusCode)

		metrics.RecordHTTPRequest(r.Method, endpoint, status)
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)
	})
}

// normalizeEndpoint срезает числовой ID из хвоста пути
func normalizeEndpoint(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return path
	}

	tail := path[i+1:]
	if tail == "" {
		return path
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return path
		}
	}

	return path[:i+1] + "{id}"
}

// responseWriter оборачивает http.ResponseWriter для захвата статус-кода
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader захватывает статус-код ответа
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
