// logger.go — middleware логирования HTTP-запросов.
// Каждому запросу присваивается request_id (UUID), который
// попадает в логи и в заголовок ответа X-Request-Id.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requestIDKey — ключ request_id в контексте запроса.
type requestIDKey struct{}

// RequestIDFromContext возвращает request_id текущего запроса или пустую строку.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestLogger возвращает middleware логирования запросов.
// Логирует метод, путь, статус, длительность и request_id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
			w.Header().Set("X-Request-Id", requestID)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			log.Info("HTTP запрос",
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
