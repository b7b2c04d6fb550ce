// logging.go — журнал HTTP-запросов Deposit Module.
// В журнал попадает шаблон маршрута chi, а не фактический путь: имена файлов
// вложений не пишутся в логи. Идентификатор сессии пишется отдельным полем.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RequestIDHeader — заголовок корреляции запроса. Тот же заголовок
// отправляется внешнему обработчику действий.
const RequestIDHeader = "X-Request-ID"

// statusRecorder запоминает статус и объём ответа.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Unwrap нужен http.ResponseController для Flush в SSE-потоке.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// RequestLogger журналирует запросы к API сессий.
// Уровень: 5xx — ERROR, 4xx — WARN, health и metrics — DEBUG, остальное — INFO.
// Входящий X-Request-ID сохраняется, отсутствующий генерируется и
// возвращается клиенту.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", rec.bytes),
			}
			if sessionID := chi.URLParamFromCtx(r.Context(), "session_id"); sessionID != "" {
				attrs = append(attrs, slog.String("session_id", sessionID))
			}
			if actionID := chi.URLParamFromCtx(r.Context(), "action_id"); actionID != "" {
				attrs = append(attrs, slog.String("action", actionID))
			}

			logger.LogAttrs(r.Context(), requestLevel(route, rec.status), "HTTP запрос", attrs...)
		})
	}
}

// requestLevel выбирает уровень записи по маршруту и статусу.
func requestLevel(route string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case route == "/metrics" || route == "/health/live" || route == "/health/ready":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
