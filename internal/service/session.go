// session.go — реестр сессий депозита.
//
// Сессия объединяет хранилище вложений и координатор выбора одного депозита.
// Реестр — LRU с TTL (hashicorp/golang-lru/v2/expirable): сессия живёт, пока
// пользователь с ней работает, и закрывается при истечении TTL, вытеснении
// или явном удалении.
package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/goartstore/deposit-module/internal/storage/attachments"
)

// Session — сессия депозита.
type Session struct {
	ID          string
	DepositID   string
	CreatedAt   time.Time
	Store       *attachments.Store
	Coordinator *Coordinator

	unsubscribeMetrics func()
	done               chan struct{}
	closeOnce          sync.Once
}

// Done закрывается при завершении сессии.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close завершает сессию: отписывает координатор и метрики, закрывает Done.
// Повторный вызов безопасен.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Coordinator.Close()
		s.unsubscribeMetrics()
		close(s.done)
	})
}

// SessionRegistry — реестр активных сессий.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	handler  ActionHandler
	actions  []ActionSpec
	base     *slog.Logger
	logger   *slog.Logger
}

// NewSessionRegistry создаёт реестр.
// maxSessions — максимальное количество сессий (старейшие вытесняются).
// ttl — время жизни сессии с момента последнего обращения.
func NewSessionRegistry(maxSessions int, ttl time.Duration, handler ActionHandler, actions []ActionSpec, logger *slog.Logger) *SessionRegistry {
	r := &SessionRegistry{
		handler: handler,
		actions: actions,
		base:    logger,
		logger:  logger.With(slog.String("component", "sessions")),
	}
	r.sessions = expirable.NewLRU[string, *Session](maxSessions, r.onEvict, ttl)
	return r
}

// Open открывает сессию для депозита. Если у депозита уже есть активная
// сессия, она возобновляется (resumed = true). Пустой depositID — всегда новая.
func (r *SessionRegistry) Open(depositID string) (sess *Session, resumed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if depositID != "" {
		for _, existing := range r.sessions.Values() {
			if existing.DepositID == depositID {
				r.sessions.Add(existing.ID, existing)
				r.logger.Info("Сессия возобновлена",
					slog.String("session_id", existing.ID),
					slog.String("deposit_id", depositID),
				)
				return existing, true
			}
		}
	}

	id := uuid.NewString()
	store := attachments.New(r.base.With(slog.String("session_id", id)))
	sess = &Session{
		ID:        id,
		DepositID: depositID,
		CreatedAt: time.Now().UTC(),
		Store:     store,
		Coordinator: NewCoordinator(store, r.handler, CoordinatorConfig{
			SessionID: id,
			DepositID: depositID,
			Actions:   r.actions,
		}, r.base),
		done: make(chan struct{}),
	}
	sess.unsubscribeMetrics = store.Subscribe(func(ev attachments.ChangeEvent) {
		uploadEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	})

	r.sessions.Add(id, sess)
	sessionsActive.Inc()

	r.logger.Info("Сессия создана",
		slog.String("session_id", id),
		slog.String("deposit_id", depositID),
	)
	return sess, false
}

// Get возвращает сессию и продлевает её TTL.
func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	r.sessions.Add(id, sess)
	return sess, true
}

// Delete завершает сессию. Возвращает false, если сессии нет.
func (r *SessionRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Remove(id)
}

// Len возвращает количество активных сессий.
func (r *SessionRegistry) Len() int {
	return r.sessions.Len()
}

// Close завершает все сессии (при остановке сервиса).
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.Purge()
}

// onEvict вызывается LRU при удалении, вытеснении и истечении TTL.
func (r *SessionRegistry) onEvict(id string, sess *Session) {
	sess.Close()
	sessionsActive.Dec()
	r.logger.Info("Сессия завершена",
		slog.String("session_id", id),
		slog.String("deposit_id", sess.DepositID),
		slog.Int("attachments", sess.Store.Len()),
	)
}
