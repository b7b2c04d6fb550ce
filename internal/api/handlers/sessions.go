// sessions.go — обработчики сессий депозита: создание/возобновление, получение, завершение.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/deposit-module/internal/api/errors"
	"github.com/bigkaa/goartstore/deposit-module/internal/service"
)

// createSessionRequest — тело POST /api/v1/sessions.
type createSessionRequest struct {
	DepositID string `json:"deposit_id"`
}

// sessionResponse — представление сессии.
type sessionResponse struct {
	SessionID   string               `json:"session_id"`
	DepositID   string               `json:"deposit_id,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	Resumed     bool                 `json:"resumed"`
	Attachments int                  `json:"attachments"`
	Revision    uint64               `json:"revision"`
	Actions     []service.ActionSpec `json:"actions"`
}

func toSessionResponse(sess *service.Session, resumed bool) sessionResponse {
	return sessionResponse{
		SessionID:   sess.ID,
		DepositID:   sess.DepositID,
		CreatedAt:   sess.CreatedAt,
		Resumed:     resumed,
		Attachments: sess.Store.Len(),
		Revision:    sess.Store.Revision(),
		Actions:     sess.Coordinator.Actions(),
	}
}

// CreateSession обрабатывает POST /api/v1/sessions.
// Возвращает 201 для новой сессии и 200 для возобновлённой.
func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	sess, resumed := h.sessions.Open(req.DepositID)

	statusCode := http.StatusCreated
	if resumed {
		statusCode = http.StatusOK
	}
	writeJSON(w, statusCode, toSessionResponse(sess, resumed))
}

// GetSession обрабатывает GET /api/v1/sessions/{session_id}.
func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess, false))
}

// DeleteSession обрабатывает DELETE /api/v1/sessions/{session_id}.
// Пользователь покинул форму — сессия и её вложения отбрасываются.
func (h *APIHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	if !h.sessions.Delete(id) {
		apierrors.NotFound(w, "Сессия не найдена: "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
