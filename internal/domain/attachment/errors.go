// errors.go — ошибки работы с вложениями депозита.
// Сравниваются через errors.Is, оборачиваются через fmt.Errorf("...: %w").
package attachment

import "errors"

var (
	// ErrInvalidName — пустое имя файла.
	ErrInvalidName = errors.New("недопустимое имя файла")
	// ErrUnknownAttachment — вложение с таким именем отсутствует.
	ErrUnknownAttachment = errors.New("вложение не найдено")
	// ErrInvalidTransition — операция недопустима в текущем состоянии вложения.
	ErrInvalidTransition = errors.New("недопустимый переход состояния")
	// ErrInvalidState — запись нарушает инварианты модели (дефект, не гонка UI).
	ErrInvalidState = errors.New("недопустимое состояние вложения")
	// ErrEmptySelection — действие требует выбранных файлов, а выбор пуст.
	ErrEmptySelection = errors.New("не выбрано ни одного файла")
	// ErrInvalidSize — отрицательный размер или прогресс.
	ErrInvalidSize = errors.New("недопустимый размер")
	// ErrUnknownAction — действие не зарегистрировано.
	ErrUnknownAction = errors.New("неизвестное действие")
	// ErrActionFailed — внешний обработчик действия вернул ошибку.
	ErrActionFailed = errors.New("действие не выполнено")
)
