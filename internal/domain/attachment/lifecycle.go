// lifecycle.go — матрица допустимых событий жизненного цикла вложения.
//
// Политика: хранилище отражает последнее применённое событие (last-event-wins),
// история событий не накапливается.
package attachment

import "fmt"

// Event — событие транспорта загрузки или UI, изменяющее вложение.
type Event string

const (
	EventBegin    Event = "begin"
	EventProgress Event = "progress"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
	EventRemove   Event = "remove"
)

// allowedSources — из каких состояний допустимо событие.
// nil — из любого состояния, включая пустое (запись ещё не создана).
var allowedSources = map[Event]map[LifecycleState]bool{
	EventBegin:    nil,
	EventProgress: {StateUploading: true},
	EventComplete: {StateUploading: true},
	EventFail:     nil,
	EventRemove:   nil,
}

// targetState — состояние после события. Для remove и progress состояние не меняется.
var targetState = map[Event]LifecycleState{
	EventBegin:    StateUploading,
	EventComplete: StateDone,
	EventFail:     StateError,
}

// CanApply проверяет, допустимо ли событие в текущем состоянии.
func CanApply(event Event, from LifecycleState) bool {
	sources, ok := allowedSources[event]
	if !ok {
		return false
	}
	if sources == nil {
		return true
	}
	return sources[from]
}

// Next возвращает состояние записи после события.
// Ошибка оборачивает ErrInvalidTransition.
func Next(event Event, from LifecycleState) (LifecycleState, error) {
	if !CanApply(event, from) {
		return from, fmt.Errorf("%w: событие %s в состоянии %s", ErrInvalidTransition, event, from)
	}
	if to, ok := targetState[event]; ok {
		return to, nil
	}
	return from, nil
}
