package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/bigkaa/goartstore/deposit-module/internal/domain/attachment"
	"github.com/bigkaa/goartstore/deposit-module/internal/storage/attachments"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingHandler — обработчик действий для тестов: запоминает запросы.
type recordingHandler struct {
	mu       sync.Mutex
	requests []ActionRequest
	err      error
}

func (h *recordingHandler) HandleAction(_ context.Context, req ActionRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, req)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}

// newTestCoordinator создаёт хранилище с файлами и координатор над ним.
func newTestCoordinator(t *testing.T, handler ActionHandler, files ...string) (*attachments.Store, *Coordinator) {
	t.Helper()
	store := attachments.New(testLogger())
	for _, f := range files {
		if err := store.BeginUpload(f, attachment.CategoryDefault); err != nil {
			t.Fatalf("BeginUpload(%q): %v", f, err)
		}
	}
	c := NewCoordinator(store, handler, CoordinatorConfig{SessionID: "s-1", DepositID: "dep-1"}, testLogger())
	t.Cleanup(c.Close)
	return store, c
}

// TestToggleSelect_ModeDisabled — вне режима выбора переключение игнорируется.
func TestToggleSelect_ModeDisabled(t *testing.T) {
	_, c := newTestCoordinator(t, &recordingHandler{}, "a.csv")

	selected, err := c.ToggleSelect("a.csv")
	if err != nil || selected {
		t.Errorf("ожидался no-op, получено %v, %v", selected, err)
	}
	// Даже неизвестный файл не даёт ошибки
	if _, err := c.ToggleSelect("missing"); err != nil {
		t.Errorf("ожидался no-op для неизвестного файла, получено %v", err)
	}
	if st := c.State(); st.Enabled || len(st.Selected) != 0 {
		t.Errorf("неожиданное состояние: %+v", st)
	}
}

// TestToggleSelect проверяет добавление, снятие и неизвестный файл.
func TestToggleSelect(t *testing.T) {
	_, c := newTestCoordinator(t, &recordingHandler{}, "a.csv", "b.zip")
	c.EnableSelectionMode(true)

	if selected, err := c.ToggleSelect("b.zip"); err != nil || !selected {
		t.Fatalf("ToggleSelect(b.zip) = %v, %v", selected, err)
	}
	if selected, err := c.ToggleSelect("a.csv"); err != nil || !selected {
		t.Fatalf("ToggleSelect(a.csv) = %v, %v", selected, err)
	}

	// Порядок — как в хранилище, а не как выбирали
	st := c.State()
	if len(st.Selected) != 2 || st.Selected[0] != "a.csv" || st.Selected[1] != "b.zip" {
		t.Errorf("Selected = %v, ожидалось [a.csv b.zip]", st.Selected)
	}

	if selected, _ := c.ToggleSelect("a.csv"); selected {
		t.Error("повторный ToggleSelect должен снять выбор")
	}

	if _, err := c.ToggleSelect("stale.txt"); !errors.Is(err, attachment.ErrUnknownAttachment) {
		t.Errorf("ожидалась ErrUnknownAttachment, получено %v", err)
	}
}

// TestEnableSelectionMode_DisableClears — выключение режима очищает выбор.
func TestEnableSelectionMode_DisableClears(t *testing.T) {
	_, c := newTestCoordinator(t, &recordingHandler{}, "a.csv")
	c.EnableSelectionMode(true)
	_, _ = c.ToggleSelect("a.csv")

	c.EnableSelectionMode(false)
	c.EnableSelectionMode(true)

	if st := c.State(); len(st.Selected) != 0 {
		t.Errorf("выбор не очищен: %v", st.Selected)
	}
}

// TestInvokeAction_RemovedFileDropped — выбраны два файла, один удалён:
// действие получает только оставшийся.
func TestInvokeAction_RemovedFileDropped(t *testing.T) {
	h := &recordingHandler{}
	store, c := newTestCoordinator(t, h, "a.csv", "b.zip")
	c.EnableSelectionMode(true)
	_, _ = c.ToggleSelect("a.csv")
	_, _ = c.ToggleSelect("b.zip")

	store.RemoveAttachment("a.csv")

	if st := c.State(); len(st.Selected) != 1 || st.Selected[0] != "b.zip" {
		t.Fatalf("Selected = %v, ожидалось [b.zip]", st.Selected)
	}

	req, err := c.InvokeAction(context.Background(), ActionArchive)
	if err != nil {
		t.Fatalf("InvokeAction: %v", err)
	}
	if len(req.Filenames) != 1 || req.Filenames[0] != "b.zip" {
		t.Errorf("Filenames = %v, ожидалось [b.zip]", req.Filenames)
	}
	if req.SessionID != "s-1" || req.DepositID != "dep-1" {
		t.Errorf("неожиданные идентификаторы: %+v", req)
	}
	if h.count() != 1 {
		t.Errorf("обработчик вызван %d раз", h.count())
	}
}

// TestReconcile_ReAddedFileNotSelected — удалённый и снова добавленный файл
// не возвращается в выбор.
func TestReconcile_ReAddedFileNotSelected(t *testing.T) {
	store, c := newTestCoordinator(t, &recordingHandler{}, "a.csv")
	c.EnableSelectionMode(true)
	_, _ = c.ToggleSelect("a.csv")

	store.RemoveAttachment("a.csv")
	_ = store.BeginUpload("a.csv", attachment.CategoryDataset)

	if st := c.State(); len(st.Selected) != 0 {
		t.Errorf("Selected = %v, ожидалось пусто", st.Selected)
	}
}

// TestInvokeAction_EmptySelection проверяет отказ для пустого выбора.
func TestInvokeAction_EmptySelection(t *testing.T) {
	h := &recordingHandler{}
	_, c := newTestCoordinator(t, h, "a.csv")

	// Режим выключен
	if _, err := c.InvokeAction(context.Background(), ActionDelete); !errors.Is(err, attachment.ErrEmptySelection) {
		t.Errorf("ожидалась ErrEmptySelection, получено %v", err)
	}

	// Режим включён, ничего не выбрано
	c.EnableSelectionMode(true)
	if _, err := c.InvokeAction(context.Background(), ActionDelete); !errors.Is(err, attachment.ErrEmptySelection) {
		t.Errorf("ожидалась ErrEmptySelection, получено %v", err)
	}

	// Действие без требования выбора проходит
	req, err := c.InvokeAction(context.Background(), ActionAttach)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if len(req.Filenames) != 0 {
		t.Errorf("Filenames = %v, ожидалось пусто", req.Filenames)
	}
	if h.count() != 1 {
		t.Errorf("обработчик вызван %d раз, ожидался 1", h.count())
	}
}

// TestInvokeAction_UnknownAction проверяет незарегистрированное действие.
func TestInvokeAction_UnknownAction(t *testing.T) {
	h := &recordingHandler{}
	_, c := newTestCoordinator(t, h, "a.csv")

	if _, err := c.InvokeAction(context.Background(), "publish"); !errors.Is(err, attachment.ErrUnknownAction) {
		t.Errorf("ожидалась ErrUnknownAction, получено %v", err)
	}
	if h.count() != 0 {
		t.Error("обработчик не должен вызываться")
	}
}

// TestInvokeAction_HandlerFailure — ошибка обработчика сохраняется как сигнал.
func TestInvokeAction_HandlerFailure(t *testing.T) {
	h := &recordingHandler{err: errors.New("deposit is locked")}
	_, c := newTestCoordinator(t, h, "a.csv")
	c.EnableSelectionMode(true)
	_, _ = c.ToggleSelect("a.csv")

	_, err := c.InvokeAction(context.Background(), ActionDelete)
	if !errors.Is(err, attachment.ErrActionFailed) {
		t.Fatalf("ожидалась ErrActionFailed, получено %v", err)
	}

	f := c.LastFailure()
	if f == nil {
		t.Fatal("LastFailure не сохранён")
	}
	if f.ActionID != ActionDelete || f.Message != "deposit is locked" {
		t.Errorf("неожиданный сигнал: %+v", f)
	}

	// Успешное действие сбрасывает сигнал
	h.mu.Lock()
	h.err = nil
	h.mu.Unlock()
	if _, err := c.InvokeAction(context.Background(), ActionDelete); err != nil {
		t.Fatalf("InvokeAction: %v", err)
	}
	if c.LastFailure() != nil {
		t.Error("LastFailure должен сброситься после успеха")
	}
}

// TestCoordinator_CustomActions проверяет собственный набор действий.
func TestCoordinator_CustomActions(t *testing.T) {
	store := attachments.New(testLogger())
	c := NewCoordinator(store, &recordingHandler{}, CoordinatorConfig{
		Actions: []ActionSpec{{ID: "zip", RequiresSelection: false}, {ID: "publish", RequiresSelection: true}},
	}, testLogger())
	defer c.Close()

	actions := c.Actions()
	if len(actions) != 2 || actions[0].ID != "publish" || actions[1].ID != "zip" {
		t.Errorf("Actions = %+v", actions)
	}
	if _, err := c.InvokeAction(context.Background(), ActionArchive); !errors.Is(err, attachment.ErrUnknownAction) {
		t.Errorf("ожидалась ErrUnknownAction, получено %v", err)
	}
}

// TestCoordinator_Close — после Close координатор не получает уведомления.
func TestCoordinator_Close(t *testing.T) {
	store := attachments.New(testLogger())
	_ = store.BeginUpload("a.csv", attachment.CategoryDefault)
	c := NewCoordinator(store, &recordingHandler{}, CoordinatorConfig{}, testLogger())
	c.EnableSelectionMode(true)
	_, _ = c.ToggleSelect("a.csv")

	c.Close()
	store.RemoveAttachment("a.csv")

	// Состояние не сверялось, но снимок строится по хранилищу
	if st := c.State(); len(st.Selected) != 0 {
		t.Errorf("Selected = %v, ожидалось пусто", st.Selected)
	}
}
