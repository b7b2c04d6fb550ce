// metrics.go — бизнес-метрики Deposit Module.
// HTTP-метрики регистрируются в api/middleware.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// uploadEventsTotal — применённые события жизненного цикла вложений.
	uploadEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_upload_events_total",
			Help: "Количество применённых событий жизненного цикла вложений",
		},
		[]string{"event"},
	)

	// actionsTotal — запросы групповых действий по результату.
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_actions_total",
			Help: "Количество групповых действий над выбранными файлами",
		},
		[]string{"action", "result"},
	)

	// sessionsActive — текущее количество сессий депозита.
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dm_sessions_active",
			Help: "Текущее количество активных сессий депозита",
		},
	)
)
