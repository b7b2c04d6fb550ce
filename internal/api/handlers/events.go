// events.go — SSE-поток изменений вложений сессии.
// Каждое изменение хранилища отправляется событием "change",
// при подключении — событие "snapshot" с текущей ревизией.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/deposit-module/internal/storage/attachments"
)

// eventBuffer — ёмкость буфера событий одного SSE-клиента.
// При переполнении события отбрасываются: клиент догонит по ревизии.
const eventBuffer = 64

// snapshotEvent — начальное событие потока.
type snapshotEvent struct {
	Revision  uint64   `json:"revision"`
	Filenames []string `json:"filenames"`
}

// StreamEvents обрабатывает GET .../events.
// Поток завершается при отключении клиента или закрытии сессии.
func (h *APIHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// ResponseController находит http.Flusher через Unwrap() middleware.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return
	}

	events := make(chan attachments.ChangeEvent, eventBuffer)
	unsubscribe := sess.Store.Subscribe(func(ev attachments.ChangeEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	defer unsubscribe()

	logger := h.logger.With(slog.String("session_id", sess.ID))
	logger.Debug("SSE клиент подключён", slog.String("remote_addr", r.RemoteAddr))

	if err := writeEvent(w, rc, "snapshot", snapshotEvent{
		Revision:  sess.Store.Revision(),
		Filenames: sess.Store.Filenames(),
	}); err != nil {
		return
	}

	keepalive := h.sseKeepalive
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("SSE клиент отключён")
			return
		case <-sess.Done():
			logger.Debug("SSE поток закрыт: сессия завершена")
			return
		case ev := <-events:
			if err := writeEvent(w, rc, "change", ev); err != nil {
				logger.Debug("Ошибка записи SSE", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// writeEvent записывает одно SSE-событие и сбрасывает буфер.
func writeEvent(w http.ResponseWriter, rc *http.ResponseController, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return rc.Flush()
}
