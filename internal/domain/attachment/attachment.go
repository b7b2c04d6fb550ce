// Пакет attachment — доменная модель вложений депозита.
//
// Record — одна запись о файле, прикреплённом к депозиту в рамках сессии.
// Жизненный цикл: uploading → done | error, error → uploading (повторная загрузка),
// done → uploading (новая загрузка с тем же именем), любое → error.
package attachment

import (
	"fmt"
	"strings"
	"time"
)

// Category — категория файла. Влияет только на выбор иконки.
type Category string

const (
	CategoryDefault       Category = "default"
	CategoryArchive       Category = "archive"
	CategoryConfiguration Category = "configuration"
	CategoryDataset       Category = "dataset"
	CategoryPublication   Category = "publication"
	CategoryPlot          Category = "plot"
)

// KnownCategories — фиксированный перечень категорий из конфигурации типов записей.
var KnownCategories = []Category{
	CategoryDefault,
	CategoryArchive,
	CategoryConfiguration,
	CategoryDataset,
	CategoryPublication,
	CategoryPlot,
}

// LifecycleState — состояние загрузки файла.
type LifecycleState string

const (
	// StateUploading — загрузка выполняется, размер может быть неизвестен
	StateUploading LifecycleState = "uploading"
	// StateDone — загрузка завершена, размер известен
	StateDone LifecycleState = "done"
	// StateError — загрузка завершилась ошибкой
	StateError LifecycleState = "error"
)

// States — все допустимые состояния.
var States = []LifecycleState{StateUploading, StateDone, StateError}

// IsValid проверяет, является ли состояние одним из трёх допустимых.
func (s LifecycleState) IsValid() bool {
	switch s {
	case StateUploading, StateDone, StateError:
		return true
	default:
		return false
	}
}

// Record — запись о вложении.
type Record struct {
	// Filename — уникальный ключ в пределах сессии
	Filename string `json:"filename"`

	// Category — категория файла (default, archive, configuration, dataset, publication, plot)
	Category Category `json:"category"`

	// SizeBytes — размер в байтах. nil, пока загрузка не завершена.
	SizeBytes *int64 `json:"size_bytes,omitempty"`

	// State — текущее состояние загрузки
	State LifecycleState `json:"lifecycle_state"`

	// ErrorDetail — описание ошибки, только в состоянии error
	ErrorDetail string `json:"error_detail,omitempty"`

	// UpdatedAt — время применения последнего события (UTC)
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone возвращает глубокую копию записи.
func (r Record) Clone() Record {
	if r.SizeBytes != nil {
		size := *r.SizeBytes
		r.SizeBytes = &size
	}
	return r
}

// Validate проверяет инварианты записи.
// Нарушение — дефект хранилища, возвращается ErrInvalidState.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return fmt.Errorf("%w: пустое имя файла", ErrInvalidState)
	}
	if !r.State.IsValid() {
		return fmt.Errorf("%w: %q у файла %q", ErrInvalidState, r.State, r.Filename)
	}
	if r.State != StateError && r.ErrorDetail != "" {
		return fmt.Errorf("%w: описание ошибки в состоянии %s у файла %q",
			ErrInvalidState, r.State, r.Filename)
	}
	if r.State == StateDone {
		if r.SizeBytes == nil {
			return fmt.Errorf("%w: размер не задан у завершённого файла %q", ErrInvalidState, r.Filename)
		}
		if *r.SizeBytes < 0 {
			return fmt.Errorf("%w: отрицательный размер у файла %q", ErrInvalidState, r.Filename)
		}
	}
	return nil
}

// ValidateName проверяет имя файла перед добавлением.
func ValidateName(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return ErrInvalidName
	}
	return nil
}
