// Пакет config — загрузка и валидация конфигурации Deposit Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/deposit-module/internal/domain/attachment"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Deposit Module.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Имя сервиса (вершина графа topologymetrics)
	ServiceID string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Время жизни сессии депозита с момента последнего обращения
	SessionTTL time.Duration
	// Максимальное количество одновременных сессий
	MaxSessions int

	// URL внешнего обработчика групповых действий (опционально)
	ActionURL string
	// Путь к CA-сертификату обработчика действий (опционально)
	ActionCACert string
	// Таймаут запроса к обработчику действий
	ActionTimeout time.Duration

	// Переопределения иконок категорий (DM_CATEGORY_ICONS)
	CategoryIcons map[attachment.Category]string
	// Иконка для неизвестных категорий
	FallbackIcon string

	// Интервал keepalive-комментариев SSE
	SSEKeepalive time.Duration

	// Таймауты HTTP-сервера. WriteTimeout = 0 — без ограничения (SSE)
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration

	// TLS (оба параметра или ни одного)
	TLSCert string
	TLSKey  string

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Имя зависимости обработчика действий в метриках topologymetrics
	DephealthDepName string
	// Путь health endpoint обработчика действий для проверки доступности
	ActionHealthPath string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// DM_PORT — порт HTTP-сервера (по умолчанию 8030)
	cfg.Port, err = getEnvInt("DM_PORT", 8030)
	if err != nil {
		return nil, fmt.Errorf("DM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("DM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.ServiceID = getEnvDefault("DM_SERVICE_ID", "deposit-module")

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("DM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// DM_SESSION_TTL — время жизни сессии (по умолчанию 2h)
	cfg.SessionTTL, err = getEnvDuration("DM_SESSION_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("DM_SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("DM_SESSION_TTL: значение должно быть положительным")
	}

	cfg.MaxSessions, err = getEnvInt("DM_MAX_SESSIONS", 1000)
	if err != nil {
		return nil, fmt.Errorf("DM_MAX_SESSIONS: %w", err)
	}
	if cfg.MaxSessions <= 0 {
		return nil, fmt.Errorf("DM_MAX_SESSIONS: значение должно быть положительным")
	}

	cfg.ActionURL = getEnvDefault("DM_ACTION_URL", "")
	cfg.ActionCACert = getEnvDefault("DM_ACTION_CA_CERT", "")
	cfg.ActionTimeout, err = getEnvDuration("DM_ACTION_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_ACTION_TIMEOUT: %w", err)
	}

	cfg.CategoryIcons, err = parseCategoryIcons(getEnvDefault("DM_CATEGORY_ICONS", ""))
	if err != nil {
		return nil, fmt.Errorf("DM_CATEGORY_ICONS: %w", err)
	}
	cfg.FallbackIcon = getEnvDefault("DM_FALLBACK_ICON", "Note")

	cfg.SSEKeepalive, err = getEnvDuration("DM_SSE_KEEPALIVE", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_SSE_KEEPALIVE: %w", err)
	}
	if cfg.SSEKeepalive <= 0 {
		return nil, fmt.Errorf("DM_SSE_KEEPALIVE: значение должно быть положительным")
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("DM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("DM_HTTP_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("DM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("DM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("DM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.TLSCert = getEnvDefault("DM_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("DM_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("DM_TLS_CERT и DM_TLS_KEY задаются только вместе")
	}

	cfg.DephealthGroup = getEnvDefault("DM_DEPHEALTH_GROUP", "deposit-module")
	cfg.DephealthCheckInterval, err = getEnvDuration("DM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthDepName = getEnvDefault("DM_DEPHEALTH_DEP_NAME", "action-handler")
	cfg.ActionHealthPath = getEnvDefault("DM_ACTION_HEALTH_PATH", "/health/ready")

	return cfg, nil
}

// TLSEnabled возвращает true, если задан TLS сертификат и ключ.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseCategoryIcons разбирает строку вида "dataset=PieChart,notebook=Code".
func parseCategoryIcons(raw string) (map[attachment.Category]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	result := make(map[attachment.Category]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		category, icon, ok := strings.Cut(pair, "=")
		category, icon = strings.TrimSpace(category), strings.TrimSpace(icon)
		if !ok || category == "" || icon == "" {
			return nil, fmt.Errorf("некорректная пара %q, ожидается категория=Иконка", pair)
		}
		result[attachment.Category(category)] = icon
	}
	return result, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
