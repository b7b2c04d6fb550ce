package service

import (
	"context"
	"log/slog"
)

// LogActionHandler — обработчик действий без внешней системы: только логирует
// запрос. Используется, когда DM_ACTION_URL не задан.
type LogActionHandler struct {
	logger *slog.Logger
}

// NewLogActionHandler создаёт логирующий обработчик действий.
func NewLogActionHandler(logger *slog.Logger) *LogActionHandler {
	return &LogActionHandler{logger: logger.With(slog.String("component", "action_log"))}
}

// HandleAction логирует запрос и всегда принимает его.
func (h *LogActionHandler) HandleAction(ctx context.Context, req ActionRequest) error {
	h.logger.InfoContext(ctx, "Запрос действия",
		slog.String("action", req.ActionID),
		slog.String("session_id", req.SessionID),
		slog.String("deposit_id", req.DepositID),
		slog.Any("filenames", req.Filenames),
	)
	return nil
}
