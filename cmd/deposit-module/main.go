// main.go — точка входа Deposit Module.
// Сервис ведёт набор вложений депозита на время сессии редактирования:
// состояние загрузок, статусы для UI, выбор файлов и групповые действия.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/deposit-module/internal/actionclient"
	"github.com/bigkaa/goartstore/deposit-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/deposit-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/deposit-module/internal/config"
	"github.com/bigkaa/goartstore/deposit-module/internal/domain/status"
	"github.com/bigkaa/goartstore/deposit-module/internal/server"
	"github.com/bigkaa/goartstore/deposit-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Deposit Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Проектор статусов: иконки по умолчанию с переопределениями из DM_CATEGORY_ICONS
	icons := status.DefaultIcons()
	for category, icon := range cfg.CategoryIcons {
		icons[category] = icon
	}
	projector := status.NewProjector(icons, cfg.FallbackIcon)

	// 4. Обработчик групповых действий: HTTP при DM_ACTION_URL, иначе только журнал
	var actionHandler service.ActionHandler
	if cfg.ActionURL != "" {
		client, clientErr := actionclient.New(cfg.ActionURL, cfg.ActionCACert, cfg.ActionTimeout, logger)
		if clientErr != nil {
			logger.Error("Ошибка создания клиента обработчика действий",
				slog.String("error", clientErr.Error()),
			)
			os.Exit(1)
		}
		actionHandler = client
		logger.Info("Групповые действия передаются внешнему обработчику",
			slog.String("action_url", cfg.ActionURL),
		)
	} else {
		actionHandler = service.NewLogActionHandler(logger)
		logger.Warn("DM_ACTION_URL не задан, групповые действия только журналируются")
	}

	// 5. Реестр сессий
	sessions := service.NewSessionRegistry(cfg.MaxSessions, cfg.SessionTTL, actionHandler, nil, logger)

	// 6. topologymetrics — мониторинг обработчика действий
	ctx := context.Background()
	var deps handlers.DependencyChecker
	var dephealthSvc *service.DephealthService
	if cfg.ActionURL != "" {
		svc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
			ServiceID:     cfg.ServiceID,
			Group:         cfg.DephealthGroup,
			DepName:       cfg.DephealthDepName,
			ActionURL:     cfg.ActionURL,
			HealthPath:    cfg.ActionHealthPath,
			CheckInterval: cfg.DephealthCheckInterval,
		}, logger)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dephealthErr.Error()),
			)
		} else if startErr := svc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			dephealthSvc = svc
			deps = svc
			logger.Info("topologymetrics запущен",
				slog.String("action_url", cfg.ActionURL),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 7. Handlers
	healthHandler := handlers.NewHealthHandler(sessions, deps)
	apiHandler := handlers.NewAPIHandler(
		sessions,
		projector,
		healthHandler,
		promhttp.Handler(),
		cfg.SSEKeepalive,
		logger,
	)

	// 8. HTTP-сервер: metrics → logging
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)
	srv.OnShutdown(sessions.Close)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	sessions.Close()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Deposit Module остановлен")
}
