// Пакет errors — конструкторы стандартных ошибок в формате Artstore.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib, как в остальных модулях

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/bigkaa/goartstore/deposit-module/internal/domain/attachment"
)

// Коды ошибок API.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidName       = "INVALID_NAME"
	CodeUnknownAttachment = "UNKNOWN_ATTACHMENT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidState      = "INVALID_STATE"
	CodeEmptySelection    = "EMPTY_SELECTION"
	CodeUnknownAction     = "UNKNOWN_ACTION"
	CodeActionFailed      = "ACTION_FAILED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате Artstore.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// Classify возвращает HTTP-статус и код для доменной ошибки.
func Classify(err error) (int, string) {
	switch {
	case stderrors.Is(err, attachment.ErrInvalidName):
		return http.StatusBadRequest, CodeInvalidName
	case stderrors.Is(err, attachment.ErrInvalidSize):
		return http.StatusBadRequest, CodeValidationError
	case stderrors.Is(err, attachment.ErrUnknownAttachment):
		return http.StatusNotFound, CodeUnknownAttachment
	case stderrors.Is(err, attachment.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case stderrors.Is(err, attachment.ErrEmptySelection):
		return http.StatusConflict, CodeEmptySelection
	case stderrors.Is(err, attachment.ErrUnknownAction):
		return http.StatusBadRequest, CodeUnknownAction
	case stderrors.Is(err, attachment.ErrActionFailed):
		return http.StatusBadGateway, CodeActionFailed
	case stderrors.Is(err, attachment.ErrInvalidState):
		return http.StatusInternalServerError, CodeInvalidState
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

// FromDomain записывает ответ для доменной ошибки.
func FromDomain(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	WriteError(w, status, code, err.Error())
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
