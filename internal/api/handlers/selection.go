// selection.go — обработчики режима выбора и групповых действий.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/deposit-module/internal/api/errors"
	"github.com/bigkaa/goartstore/deposit-module/internal/service"
)

// selectionModeRequest — тело PUT .../selection/mode.
type selectionModeRequest struct {
	Enabled *bool `json:"enabled"`
}

// toggleRequest — тело POST .../selection/toggle.
type toggleRequest struct {
	Filename string `json:"filename"`
}

// toggleResponse — результат переключения выбора файла.
type toggleResponse struct {
	Filename  string                 `json:"filename"`
	Selected  bool                   `json:"selected"`
	Selection service.SelectionState `json:"selection"`
}

// actionResponse — результат группового действия.
type actionResponse struct {
	ActionID  string   `json:"action_id"`
	Filenames []string `json:"filenames"`
}

// GetSelection обрабатывает GET .../selection.
func (h *APIHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.Coordinator.State())
}

// SetSelectionMode обрабатывает PUT .../selection/mode.
func (h *APIHandler) SetSelectionMode(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	var req selectionModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		apierrors.ValidationError(w, "Поле 'enabled' обязательно")
		return
	}

	sess.Coordinator.EnableSelectionMode(*req.Enabled)
	writeJSON(w, http.StatusOK, sess.Coordinator.State())
}

// ToggleSelect обрабатывает POST .../selection/toggle.
func (h *APIHandler) ToggleSelect(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	selected, err := sess.Coordinator.ToggleSelect(req.Filename)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{
		Filename:  req.Filename,
		Selected:  selected,
		Selection: sess.Coordinator.State(),
	})
}

// InvokeAction обрабатывает POST .../actions/{action_id}.
// Ошибка внешнего обработчика возвращается как 502 ACTION_FAILED,
// текст ошибки также доступен в action_failure списка вложений.
func (h *APIHandler) InvokeAction(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	req, err := sess.Coordinator.InvokeAction(r.Context(), chi.URLParam(r, "action_id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		ActionID:  req.ActionID,
		Filenames: req.Filenames,
	})
}
