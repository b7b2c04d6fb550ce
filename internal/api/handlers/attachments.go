// attachments.go — обработчики событий транспорта загрузки и списка вложений.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/goartstore/deposit-module/internal/api/errors"
	"github.com/bigkaa/goartstore/deposit-module/internal/domain/attachment"
	"github.com/bigkaa/goartstore/deposit-module/internal/domain/status"
	"github.com/bigkaa/goartstore/deposit-module/internal/service"
	"github.com/bigkaa/goartstore/deposit-module/internal/storage/attachments"
)

// beginUploadRequest — тело POST .../attachments.
type beginUploadRequest struct {
	Filename     string `json:"filename"`
	Category     string `json:"category"`
	ExpectedSize int64  `json:"expected_size,omitempty"`
}

// progressRequest — тело POST .../progress.
type progressRequest struct {
	BytesTransferred int64 `json:"bytes_transferred"`
}

// completeRequest — тело POST .../complete.
type completeRequest struct {
	SizeBytes *int64 `json:"size_bytes"`
}

// failRequest — тело POST .../fail.
type failRequest struct {
	ErrorDetail string `json:"error_detail"`
}

// progressView — прогресс загрузки для UI.
type progressView struct {
	BytesTransferred int64 `json:"bytes_transferred"`
	ExpectedBytes    int64 `json:"expected_bytes,omitempty"`
	Percent          int   `json:"percent"`
}

// attachmentView — запись вложения с дескриптором отображения.
// При ошибке проекции Descriptor отсутствует, а ProjectionError заполнен.
type attachmentView struct {
	attachment.Record
	Descriptor      *status.Descriptor `json:"descriptor,omitempty"`
	ProjectionError string             `json:"projection_error,omitempty"`
	Progress        *progressView      `json:"progress,omitempty"`
}

// listResponse — список вложений сессии.
type listResponse struct {
	SessionID     string                 `json:"session_id"`
	Revision      uint64                 `json:"revision"`
	Total         int                    `json:"total"`
	Selectable    bool                   `json:"selectable"`
	Selection     service.SelectionState `json:"selection"`
	Items         []attachmentView       `json:"items"`
	EmptyMessage  string                 `json:"empty_message,omitempty"`
	ActionFailure *service.ActionFailure `json:"action_failure,omitempty"`
}

// toView строит представление записи. Прогресс показывается только для uploading.
func toView(item status.Item, store *attachments.Store) attachmentView {
	view := attachmentView{Record: item.Record}
	if item.Err != nil {
		view.ProjectionError = item.Err.Error()
	} else {
		d := item.Descriptor
		view.Descriptor = &d
	}
	if item.Record.State == attachment.StateUploading {
		if p, ok := store.Progress(item.Record.Filename); ok {
			view.Progress = &progressView{
				BytesTransferred: p.Transferred,
				ExpectedBytes:    p.Total,
				Percent:          p.Percent(),
			}
		}
	}
	return view
}

// ListAttachments обрабатывает GET .../attachments.
// Некорректная запись не прерывает список: её ошибка отдаётся в projection_error.
func (h *APIHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	revision := sess.Store.Revision()
	items := h.projector.DescribeAll(sess.Store.List())
	views := make([]attachmentView, 0, len(items))
	for _, item := range items {
		if item.Err != nil {
			h.logger.Error("Запись вложения не прошла проекцию",
				"session_id", sess.ID,
				"filename", item.Record.Filename,
				"error", item.Err.Error(),
			)
		}
		views = append(views, toView(item, sess.Store))
	}

	selection := sess.Coordinator.State()
	resp := listResponse{
		SessionID:     sess.ID,
		Revision:      revision,
		Total:         len(views),
		Selectable:    selection.Enabled,
		Selection:     selection,
		Items:         views,
		ActionFailure: sess.Coordinator.LastFailure(),
	}
	if len(views) == 0 {
		resp.EmptyMessage = emptyListMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetAttachment обрабатывает GET .../attachments/{filename}.
func (h *APIHandler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	filename := filenameParam(r)
	rec, ok := sess.Store.Get(filename)
	if !ok {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeUnknownAttachment,
			"Вложение не найдено: "+filename)
		return
	}

	d, err := h.projector.Describe(rec)
	writeJSON(w, http.StatusOK, toView(status.Item{Record: rec, Descriptor: d, Err: err}, sess.Store))
}

// BeginUpload обрабатывает POST .../attachments — начало (или перезапуск) загрузки.
func (h *APIHandler) BeginUpload(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	var req beginUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExpectedSize < 0 {
		apierrors.ValidationError(w, "expected_size не может быть отрицательным")
		return
	}

	existed := sess.Store.Contains(req.Filename)
	err := sess.Store.BeginUpload(req.Filename, attachment.Category(req.Category),
		attachments.WithExpectedSize(req.ExpectedSize))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	statusCode := http.StatusCreated
	if existed {
		statusCode = http.StatusOK
	}
	h.writeRecord(w, r, sess, req.Filename, statusCode)
}

// ReportProgress обрабатывает POST .../attachments/{filename}/progress.
func (h *APIHandler) ReportProgress(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	var req progressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	filename := filenameParam(r)
	if err := sess.Store.ReportProgress(filename, req.BytesTransferred); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRecord(w, r, sess, filename, http.StatusOK)
}

// CompleteUpload обрабатывает POST .../attachments/{filename}/complete.
func (h *APIHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	var req completeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SizeBytes == nil {
		apierrors.ValidationError(w, "Поле 'size_bytes' обязательно")
		return
	}

	filename := filenameParam(r)
	if err := sess.Store.CompleteUpload(filename, *req.SizeBytes); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRecord(w, r, sess, filename, http.StatusOK)
}

// FailUpload обрабатывает POST .../attachments/{filename}/fail.
func (h *APIHandler) FailUpload(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	var req failRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	filename := filenameParam(r)
	if err := sess.Store.FailUpload(filename, req.ErrorDetail); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeRecord(w, r, sess, filename, http.StatusOK)
}

// RemoveAttachment обрабатывает DELETE .../attachments/{filename}.
// Идемпотентен: повторное удаление тоже отвечает 204.
func (h *APIHandler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	sess.Store.RemoveAttachment(filenameParam(r))
	w.WriteHeader(http.StatusNoContent)
}

// writeRecord отвечает текущим состоянием записи после изменения.
// Запись могла быть удалена параллельным запросом — тогда 404.
func (h *APIHandler) writeRecord(w http.ResponseWriter, r *http.Request, sess *service.Session, filename string, statusCode int) {
	rec, ok := sess.Store.Get(filename)
	if !ok {
		h.writeDomainError(w, r, attachment.ErrUnknownAttachment)
		return
	}
	d, err := h.projector.Describe(rec)
	writeJSON(w, statusCode, toView(status.Item{Record: rec, Descriptor: d, Err: err}, sess.Store))
}
