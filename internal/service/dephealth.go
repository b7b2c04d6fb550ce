// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Deposit Module мониторит одну зависимость — внешний обработчик групповых
// действий (HTTP checker к его health endpoint). Зависимость некритична:
// без неё загрузки и выбор продолжают работать, недоступны только действия.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — параметры мониторинга обработчика действий.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения (DM_SERVICE_ID)
	ServiceID string
	// Group — имя группы в метриках (DM_DEPHEALTH_GROUP)
	Group string
	// DepName — имя зависимости (DM_DEPHEALTH_DEP_NAME)
	DepName string
	// ActionURL — URL обработчика действий (DM_ACTION_URL)
	ActionURL string
	// HealthPath — путь health endpoint обработчика (DM_ACTION_HEALTH_PATH)
	HealthPath string
	// CheckInterval — интервал проверки (DM_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(cfg DephealthConfig, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	parsed, err := url.Parse(cfg.ActionURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("некорректный URL обработчика действий %q", cfg.ActionURL)
	}

	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/health/ready"
	}
	depName := cfg.DepName
	if depName == "" {
		depName = "action-handler"
	}

	depOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.ActionURL),
		dephealth.WithHTTPHealthPath(healthPath),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(false),
	}
	if parsed.Scheme == "https" {
		depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(false))
	}

	opts := make([]dephealth.Option, 0, 2+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.HTTP(depName, depOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (обработчик действий)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
