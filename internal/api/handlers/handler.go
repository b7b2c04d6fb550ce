// handler.go — APIHandler регистрирует маршруты Deposit Module в chi
// и делегирует вызовы в доменные handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/deposit-module/internal/api/errors"
	"github.com/bigkaa/goartstore/deposit-module/internal/domain/attachment"
	"github.com/bigkaa/goartstore/deposit-module/internal/domain/status"
	"github.com/bigkaa/goartstore/deposit-module/internal/service"
)

// emptyListMessage — текст для пустого списка вложений.
const emptyListMessage = "No files have been attached to this project."

// maxBodyBytes — ограничение тела JSON-запросов.
const maxBodyBytes = 1 << 20

// APIHandler — обработчики API сессий депозита.
type APIHandler struct {
	sessions     *service.SessionRegistry
	projector    *status.Projector
	health       *HealthHandler
	metrics      http.Handler
	sseKeepalive time.Duration
	logger       *slog.Logger
}

// NewAPIHandler создаёт обработчик API.
// metrics — обработчик /metrics (promhttp.Handler), nil — маршрут не регистрируется.
func NewAPIHandler(
	sessions *service.SessionRegistry,
	projector *status.Projector,
	health *HealthHandler,
	metrics http.Handler,
	sseKeepalive time.Duration,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		sessions:     sessions,
		projector:    projector,
		health:       health,
		metrics:      metrics,
		sseKeepalive: sseKeepalive,
		logger:       logger.With(slog.String("component", "api")),
	}
}

// Routes регистрирует все маршруты в роутере.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)

		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)

			r.Get("/attachments", h.ListAttachments)
			r.Post("/attachments", h.BeginUpload)
			r.Get("/attachments/{filename}", h.GetAttachment)
			r.Delete("/attachments/{filename}", h.RemoveAttachment)
			r.Post("/attachments/{filename}/progress", h.ReportProgress)
			r.Post("/attachments/{filename}/complete", h.CompleteUpload)
			r.Post("/attachments/{filename}/fail", h.FailUpload)

			r.Get("/selection", h.GetSelection)
			r.Put("/selection/mode", h.SetSelectionMode)
			r.Post("/selection/toggle", h.ToggleSelect)

			r.Post("/actions/{action_id}", h.InvokeAction)

			r.Get("/events", h.StreamEvents)
		})
	})
}

// --- Вспомогательные функции ---

// session извлекает сессию из URL. При ошибке пишет 404 и возвращает nil.
func (h *APIHandler) session(w http.ResponseWriter, r *http.Request) *service.Session {
	id := chi.URLParam(r, "session_id")
	sess, ok := h.sessions.Get(id)
	if !ok {
		apierrors.NotFound(w, "Сессия не найдена: "+id)
		return nil
	}
	return sess
}

// filenameParam возвращает имя файла из URL, декодированное ровно один раз.
// chi маршрутизирует по RawPath, если он задан (имя содержит %2F и т.п.),
// и тогда параметр ещё экранирован; иначе параметр взят из уже декодированного Path.
func filenameParam(r *http.Request) string {
	raw := chi.URLParam(r, "filename")
	if r.URL.RawPath == "" {
		return raw
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// decodeJSON читает JSON-тело запроса. При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// writeJSON записывает JSON-ответ.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError записывает ответ для доменной ошибки и логирует её.
// InvalidState — дефект, ERROR; ожидаемые гонки UI (неизвестный файл) — DEBUG.
func (h *APIHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	attrs := []slog.Attr{
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	switch {
	case errors.Is(err, attachment.ErrInvalidState):
		h.logger.LogAttrs(r.Context(), slog.LevelError, "Нарушение инварианта вложения", attrs...)
	case errors.Is(err, attachment.ErrActionFailed):
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "Действие не выполнено", attrs...)
	default:
		h.logger.LogAttrs(r.Context(), slog.LevelDebug, "Операция отклонена", attrs...)
	}
	apierrors.FromDomain(w, err)
}
