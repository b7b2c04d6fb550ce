// Пакет attachments — хранилище вложений одной сессии депозита.
//
// Store хранит упорядоченное отображение filename → Record (порядок вставки =
// порядок отображения) и является единственным источником изменений состояния
// вложений. После каждого изменения подписчики получают ChangeEvent.
//
// Политика last-event-wins: применяется последнее полученное событие,
// причинная упорядоченность событий транспорта не восстанавливается.
package attachments

import (
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/deposit-module/internal/domain/attachment"
)

// ChangeEvent — уведомление об изменении хранилища.
type ChangeEvent struct {
	// Kind — применённое событие
	Kind attachment.Event `json:"kind"`
	// Filename — затронутый файл
	Filename string `json:"filename"`
	// Membership — изменился набор имён файлов (добавление или удаление)
	Membership bool `json:"membership"`
	// Revision — номер ревизии хранилища после изменения
	Revision uint64 `json:"revision"`
}

// Progress — прогресс загрузки, только для обратной связи в UI.
// Не входит в Record.
type Progress struct {
	Transferred int64 `json:"bytes_transferred"`
	// Total — ожидаемый размер, 0 если неизвестен
	Total int64 `json:"expected_bytes,omitempty"`
}

// Percent возвращает процент загрузки (0-100) или -1, если объём неизвестен.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	if p.Transferred >= p.Total {
		return 100
	}
	return int(p.Transferred * 100 / p.Total)
}

// UploadOption — опция BeginUpload.
type UploadOption func(*uploadOptions)

type uploadOptions struct {
	expectedSize int64
}

// WithExpectedSize задаёт ожидаемый размер файла для расчёта процента.
func WithExpectedSize(n int64) UploadOption {
	return func(o *uploadOptions) {
		if n > 0 {
			o.expectedSize = n
		}
	}
}

type entry struct {
	rec      attachment.Record
	progress Progress
}

// Store — потокобезопасное хранилище вложений сессии.
// Запись и чтение сериализуются через sync.RWMutex, подписчики
// вызываются синхронно после изменения, вне блокировки хранилища.
type Store struct {
	mu       sync.RWMutex
	order    []string
	entries  map[string]*entry
	revision uint64

	lmu          sync.Mutex
	listeners    map[uint64]func(ChangeEvent)
	nextListener uint64

	logger *slog.Logger
	now    func() time.Time
}

// New создаёт пустое хранилище.
func New(logger *slog.Logger) *Store {
	return &Store{
		entries:   make(map[string]*entry),
		listeners: make(map[uint64]func(ChangeEvent)),
		logger:    logger.With(slog.String("component", "attachments")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// BeginUpload начинает загрузку файла.
// Существующая запись с тем же именем сбрасывается в uploading (размер и ошибка
// очищаются, позиция сохраняется). Новая запись добавляется в конец.
func (s *Store) BeginUpload(filename string, category attachment.Category, opts ...UploadOption) error {
	if err := attachment.ValidateName(filename); err != nil {
		return err
	}

	var o uploadOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	e, exists := s.entries[filename]
	var from attachment.LifecycleState
	if exists {
		from = e.rec.State
	}
	state, err := attachment.Next(attachment.EventBegin, from)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("файл %q: %w", filename, err)
	}
	if !exists {
		e = &entry{}
		s.entries[filename] = e
		s.order = append(s.order, filename)
	}
	e.rec = attachment.Record{
		Filename:  filename,
		Category:  category,
		State:     state,
		UpdatedAt: s.now(),
	}
	e.progress = Progress{Total: o.expectedSize}
	ev := s.bumpLocked(attachment.EventBegin, filename, !exists)
	s.mu.Unlock()

	s.logger.Debug("Загрузка начата",
		slog.String("filename", filename),
		slog.String("category", string(category)),
		slog.Bool("replaced", exists),
	)
	s.notify(ev)
	return nil
}

// ReportProgress обновляет прогресс загрузки.
// Допустимо только в состоянии uploading.
func (s *Store) ReportProgress(filename string, bytesTransferred int64) error {
	if bytesTransferred < 0 {
		return fmt.Errorf("%w: %d байт", attachment.ErrInvalidSize, bytesTransferred)
	}

	s.mu.Lock()
	e, _, err := s.applyLocked(filename, attachment.EventProgress)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	e.progress.Transferred = bytesTransferred
	ev := s.bumpLocked(attachment.EventProgress, filename, false)
	s.mu.Unlock()

	s.notify(ev)
	return nil
}

// CompleteUpload завершает загрузку и фиксирует размер файла.
// Допустимо только в состоянии uploading, иначе запись не изменяется.
func (s *Store) CompleteUpload(filename string, sizeBytes int64) error {
	if sizeBytes < 0 {
		return fmt.Errorf("%w: %d байт", attachment.ErrInvalidSize, sizeBytes)
	}

	s.mu.Lock()
	e, state, err := s.applyLocked(filename, attachment.EventComplete)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	size := sizeBytes
	e.rec.State = state
	e.rec.SizeBytes = &size
	e.rec.ErrorDetail = ""
	e.rec.UpdatedAt = s.now()
	e.progress = Progress{Transferred: sizeBytes, Total: sizeBytes}
	ev := s.bumpLocked(attachment.EventComplete, filename, false)
	s.mu.Unlock()

	s.logger.Debug("Загрузка завершена",
		slog.String("filename", filename),
		slog.Int64("size", sizeBytes),
	)
	s.notify(ev)
	return nil
}

// FailUpload переводит вложение в состояние error из любого состояния
// (включая запоздалые и повторные события ошибки).
func (s *Store) FailUpload(filename, errorDetail string) error {
	if errorDetail == "" {
		errorDetail = "upload failed"
	}

	s.mu.Lock()
	e, state, err := s.applyLocked(filename, attachment.EventFail)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	e.rec.State = state
	e.rec.ErrorDetail = errorDetail
	e.rec.UpdatedAt = s.now()
	ev := s.bumpLocked(attachment.EventFail, filename, false)
	s.mu.Unlock()

	s.logger.Debug("Загрузка завершилась ошибкой",
		slog.String("filename", filename),
		slog.String("error_detail", errorDetail),
	)
	s.notify(ev)
	return nil
}

// RemoveAttachment удаляет вложение в любом состоянии.
// Идемпотентна: отсутствующее имя — no-op. Возвращает true, если запись была удалена.
func (s *Store) RemoveAttachment(filename string) bool {
	s.mu.Lock()
	if _, _, err := s.applyLocked(filename, attachment.EventRemove); err != nil {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, filename)
	for i, name := range s.order {
		if name == filename {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	ev := s.bumpLocked(attachment.EventRemove, filename, true)
	s.mu.Unlock()

	s.logger.Debug("Вложение удалено", slog.String("filename", filename))
	s.notify(ev)
	return true
}

// List возвращает ленивую перезапускаемую последовательность записей
// в порядке вставки. Каждая запись — копия; записи, удалённые во время
// обхода, пропускаются.
func (s *Store) List() iter.Seq[attachment.Record] {
	return func(yield func(attachment.Record) bool) {
		for _, name := range s.Filenames() {
			rec, ok := s.Get(name)
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Get возвращает копию записи по имени файла.
func (s *Store) Get(filename string) (attachment.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[filename]
	if !ok {
		return attachment.Record{}, false
	}
	return e.rec.Clone(), true
}

// Progress возвращает прогресс загрузки файла.
func (s *Store) Progress(filename string) (Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[filename]
	if !ok {
		return Progress{}, false
	}
	return e.progress, true
}

// Contains проверяет наличие вложения.
func (s *Store) Contains(filename string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[filename]
	return ok
}

// Len возвращает количество вложений.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Filenames возвращает имена файлов в порядке вставки (копия).
func (s *Store) Filenames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, len(s.order))
	copy(result, s.order)
	return result
}

// Revision возвращает номер текущей ревизии (растёт при каждом изменении).
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// CountByState возвращает количество вложений в указанном состоянии.
func (s *Store) CountByState(state attachment.LifecycleState) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.rec.State == state {
			count++
		}
	}
	return count
}

// Subscribe регистрирует подписчика на изменения.
// Возвращает функцию отписки; повторный вызов отписки безопасен.
func (s *Store) Subscribe(fn func(ChangeEvent)) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// applyLocked находит запись и вычисляет её состояние после события
// по матрице жизненного цикла. Вызывается под s.mu.
func (s *Store) applyLocked(filename string, event attachment.Event) (*entry, attachment.LifecycleState, error) {
	e, ok := s.entries[filename]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", attachment.ErrUnknownAttachment, filename)
	}
	state, err := attachment.Next(event, e.rec.State)
	if err != nil {
		return nil, "", fmt.Errorf("файл %q: %w", filename, err)
	}
	return e, state, nil
}

// bumpLocked увеличивает ревизию и формирует событие. Вызывается под s.mu.
func (s *Store) bumpLocked(kind attachment.Event, filename string, membership bool) ChangeEvent {
	s.revision++
	return ChangeEvent{
		Kind:       kind,
		Filename:   filename,
		Membership: membership,
		Revision:   s.revision,
	}
}

// notify вызывает подписчиков вне блокировки хранилища.
func (s *Store) notify(ev ChangeEvent) {
	s.lmu.Lock()
	fns := make([]func(ChangeEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
