// coordinator.go — координатор выбора файлов и групповых действий.
//
// Групповые действия доступны только в режиме выбора. Координатор вычисляет
// целевой набор и передаёт запрос внешнему ActionHandler, сам действие
// не выполняет. Выбор сверяется с хранилищем по уведомлениям о смене состава.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/deposit-module/internal/domain/attachment"
	"github.com/bigkaa/goartstore/deposit-module/internal/storage/attachments"
)

// Идентификаторы действий по умолчанию.
const (
	// ActionArchive — добавить выбранные файлы в архив
	ActionArchive = "archive"
	// ActionDelete — удалить выбранные файлы
	ActionDelete = "delete"
	// ActionAttach — открыть менеджер файлов, выбор не нужен
	ActionAttach = "attach"
)

// ActionSpec — описание группового действия.
type ActionSpec struct {
	ID                string `json:"id"`
	RequiresSelection bool   `json:"requires_selection"`
}

// DefaultActions возвращает набор действий по умолчанию.
func DefaultActions() []ActionSpec {
	return []ActionSpec{
		{ID: ActionArchive, RequiresSelection: true},
		{ID: ActionDelete, RequiresSelection: true},
		{ID: ActionAttach, RequiresSelection: false},
	}
}

// ActionRequest — запрос к внешнему обработчику действий.
type ActionRequest struct {
	ActionID  string   `json:"action_id"`
	Filenames []string `json:"filenames"`
	SessionID string   `json:"session_id,omitempty"`
	DepositID string   `json:"deposit_id,omitempty"`
}

// ActionHandler — внешний исполнитель действий (подтверждение удаления,
// отправка в архив и т.п.). Ошибка для координатора непрозрачна.
type ActionHandler interface {
	HandleAction(ctx context.Context, req ActionRequest) error
}

// ActionFailure — сигнал о неудаче действия для отображения пользователю.
type ActionFailure struct {
	ActionID string    `json:"action_id"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// SelectionState — снимок состояния выбора.
type SelectionState struct {
	Enabled  bool     `json:"enabled"`
	Selected []string `json:"selected"`
}

// AttachmentSource — хранилище, из которого координатор читает состав вложений.
type AttachmentSource interface {
	Contains(filename string) bool
	Filenames() []string
	Subscribe(fn func(attachments.ChangeEvent)) (unsubscribe func())
}

// CoordinatorConfig — параметры координатора.
type CoordinatorConfig struct {
	SessionID string
	DepositID string
	// Actions — зарегистрированные действия (nil — DefaultActions)
	Actions []ActionSpec
}

// Coordinator — координатор выбора и действий одной сессии.
type Coordinator struct {
	mu          sync.Mutex
	store       AttachmentSource
	handler     ActionHandler
	actions     map[string]ActionSpec
	enabled     bool
	selected    map[string]struct{}
	lastFailure *ActionFailure

	sessionID   string
	depositID   string
	unsubscribe func()
	logger      *slog.Logger
	now         func() time.Time
}

// NewCoordinator создаёт координатор и подписывает его на изменения хранилища.
func NewCoordinator(store AttachmentSource, handler ActionHandler, cfg CoordinatorConfig, logger *slog.Logger) *Coordinator {
	specs := cfg.Actions
	if specs == nil {
		specs = DefaultActions()
	}
	actions := make(map[string]ActionSpec, len(specs))
	for _, spec := range specs {
		actions[spec.ID] = spec
	}

	c := &Coordinator{
		store:     store,
		handler:   handler,
		actions:   actions,
		selected:  make(map[string]struct{}),
		sessionID: cfg.SessionID,
		depositID: cfg.DepositID,
		logger: logger.With(
			slog.String("component", "coordinator"),
			slog.String("session_id", cfg.SessionID),
		),
		now: func() time.Time { return time.Now().UTC() },
	}
	c.unsubscribe = store.Subscribe(c.onStoreChange)
	return c
}

// Close отписывает координатор от хранилища.
func (c *Coordinator) Close() {
	c.unsubscribe()
}

// EnableSelectionMode включает или выключает режим выбора.
// Выключение очищает выбранные файлы.
func (c *Coordinator) EnableSelectionMode(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = enabled
	if !enabled {
		c.selected = make(map[string]struct{})
	}
}

// ToggleSelect добавляет файл в выбор или убирает его.
// Вне режима выбора — no-op. Возвращает итоговое состояние файла (выбран/нет).
func (c *Coordinator) ToggleSelect(filename string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return false, nil
	}
	if !c.store.Contains(filename) {
		return false, fmt.Errorf("%w: %q", attachment.ErrUnknownAttachment, filename)
	}

	if _, ok := c.selected[filename]; ok {
		delete(c.selected, filename)
		return false, nil
	}
	c.selected[filename] = struct{}{}
	return true, nil
}

// State возвращает снимок выбора. Выбранные файлы — в порядке хранилища.
func (c *Coordinator) State() SelectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SelectionState{
		Enabled:  c.enabled,
		Selected: c.snapshotLocked(),
	}
}

// Actions возвращает зарегистрированные действия, отсортированные по ID.
func (c *Coordinator) Actions() []ActionSpec {
	result := make([]ActionSpec, 0, len(c.actions))
	for _, spec := range c.actions {
		result = append(result, spec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// LastFailure возвращает последний сигнал о неудаче действия или nil.
func (c *Coordinator) LastFailure() *ActionFailure {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastFailure == nil {
		return nil
	}
	f := *c.lastFailure
	return &f
}

// InvokeAction вычисляет целевой набор и передаёт запрос обработчику.
//
// Ошибки:
//   - ErrUnknownAction — действие не зарегистрировано
//   - ErrEmptySelection — действию нужны выбранные файлы, а выбор пуст
//   - ErrActionFailed — обработчик вернул ошибку (сохраняется в LastFailure)
func (c *Coordinator) InvokeAction(ctx context.Context, actionID string) (ActionRequest, error) {
	spec, ok := c.actions[actionID]
	if !ok {
		actionsTotal.WithLabelValues("unknown", "rejected").Inc()
		return ActionRequest{}, fmt.Errorf("%w: %q", attachment.ErrUnknownAction, actionID)
	}

	c.mu.Lock()
	targets := c.snapshotLocked()
	c.mu.Unlock()

	if spec.RequiresSelection && len(targets) == 0 {
		actionsTotal.WithLabelValues(actionID, "rejected").Inc()
		return ActionRequest{}, fmt.Errorf("действие %q: %w", actionID, attachment.ErrEmptySelection)
	}

	req := ActionRequest{
		ActionID:  actionID,
		Filenames: targets,
		SessionID: c.sessionID,
		DepositID: c.depositID,
	}

	// Обработчик вызывается без блокировки: он может обращаться к хранилищу
	if err := c.handler.HandleAction(ctx, req); err != nil {
		failure := ActionFailure{ActionID: actionID, Message: err.Error(), At: c.now()}
		c.mu.Lock()
		c.lastFailure = &failure
		c.mu.Unlock()

		actionsTotal.WithLabelValues(actionID, "failed").Inc()
		c.logger.Warn("Обработчик действия вернул ошибку",
			slog.String("action", actionID),
			slog.Int("files", len(targets)),
			slog.String("error", err.Error()),
		)
		return req, fmt.Errorf("%w: %s", attachment.ErrActionFailed, failure.Message)
	}

	c.mu.Lock()
	c.lastFailure = nil
	c.mu.Unlock()

	actionsTotal.WithLabelValues(actionID, "ok").Inc()
	c.logger.Info("Действие передано обработчику",
		slog.String("action", actionID),
		slog.Int("files", len(targets)),
	)
	return req, nil
}

// snapshotLocked возвращает выбранные файлы в порядке хранилища. Вызывается под c.mu.
func (c *Coordinator) snapshotLocked() []string {
	result := make([]string, 0, len(c.selected))
	if len(c.selected) == 0 {
		return result
	}
	for _, name := range c.store.Filenames() {
		if _, ok := c.selected[name]; ok {
			result = append(result, name)
		}
	}
	return result
}

// onStoreChange убирает из выбора файлы, которых больше нет в хранилище.
func (c *Coordinator) onStoreChange(ev attachments.ChangeEvent) {
	if !ev.Membership {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for name := range c.selected {
		if !c.store.Contains(name) {
			delete(c.selected, name)
			c.logger.Debug("Файл убран из выбора после удаления",
				slog.String("filename", name),
			)
		}
	}
}
