// health.go — обработчики health endpoints Deposit Module.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (реестр сессий и обработчик действий)
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/deposit-module/internal/config"
)

// Константы статусов health check.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// DependencyChecker — источник состояния внешних зависимостей (dephealth).
type DependencyChecker interface {
	// Health возвращает состояние зависимостей: имя → здорова.
	Health() map[string]bool
}

// SessionCounter — источник числа активных сессий.
type SessionCounter interface {
	Len() int
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	sessions SessionCounter
	deps     DependencyChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
// deps может быть nil — внешний обработчик действий не настроен.
func NewHealthHandler(sessions SessionCounter, deps DependencyChecker) *HealthHandler {
	return &HealthHandler{sessions: sessions, deps: deps}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status         string                       `json:"status"`
	Timestamp      string                       `json:"timestamp"`
	Version        string                       `json:"version"`
	Service        string                       `json:"service"`
	ActiveSessions int                          `json:"active_sessions"`
	Checks         map[string]healthCheckResult `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "deposit-module",
	})
}

// HealthReady — readiness probe.
// Недоступный обработчик действий даёт degraded (200): загрузки продолжают работать.
// Без реестра сессий — fail (503).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "deposit-module",
		Checks:    make(map[string]healthCheckResult),
	}

	statuses := make([]string, 0, 2)
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.Len()
		resp.Checks["sessions"] = healthCheckResult{Status: statusOK}
		statuses = append(statuses, statusOK)
	} else {
		resp.Checks["sessions"] = healthCheckResult{Status: statusFail, Message: "не инициализирован"}
		statuses = append(statuses, statusFail)
	}

	if h.deps != nil {
		for name, healthy := range h.deps.Health() {
			if healthy {
				resp.Checks[name] = healthCheckResult{Status: statusOK}
				continue
			}
			resp.Checks[name] = healthCheckResult{Status: statusDegraded, Message: "зависимость недоступна"}
			statuses = append(statuses, statusDegraded)
		}
	}

	resp.Status = overallStatus(statuses...)
	statusCode := http.StatusOK
	if resp.Status == statusFail {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, resp)
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}
