// Пакет status — проекция записи вложения в дескриптор отображения.
//
// Projector — чистая функция без состояния, кроме неизменяемой таблицы иконок:
// категория → иконка, состояние → цвет статуса, запись → подпись с размером.
// Дескриптор пересчитывается при каждом рендере и нигде не хранится.
package status

import (
	"fmt"
	"iter"

	"github.com/bigkaa/goartstore/deposit-module/internal/domain/attachment"
)

// Color — цвет статус-бейджа.
type Color string

const (
	// ColorDisabled — нейтральный, загрузка выполняется
	ColorDisabled Color = "disabled"
	// ColorCritical — ошибка загрузки
	ColorCritical Color = "critical"
	// ColorOK — загрузка завершена
	ColorOK Color = "ok"
)

// FallbackIcon — иконка для категорий вне таблицы.
const FallbackIcon = "Note"

// IconTable — отображение категории в идентификатор иконки.
type IconTable map[attachment.Category]string

// DefaultIcons возвращает таблицу иконок по умолчанию.
func DefaultIcons() IconTable {
	return IconTable{
		attachment.CategoryDefault:       "Archive",
		attachment.CategoryArchive:       "Archive",
		attachment.CategoryConfiguration: "DocumentConfig",
		attachment.CategoryDataset:       "PieChart",
		attachment.CategoryPublication:   "Book",
		attachment.CategoryPlot:          "PieChart",
	}
}

// statusColors — матрица состояние → цвет.
var statusColors = map[attachment.LifecycleState]Color{
	attachment.StateUploading: ColorDisabled,
	attachment.StateError:     ColorCritical,
	attachment.StateDone:      ColorOK,
}

// Descriptor — представление вложения для UI.
type Descriptor struct {
	IconID      string `json:"icon_id"`
	StatusColor Color  `json:"status_color"`
	Label       string `json:"label"`
}

// Item — результат проекции одной записи. Err != nil — запись некорректна,
// Descriptor пуст; остальные записи списка от этого не зависят.
type Item struct {
	Record     attachment.Record
	Descriptor Descriptor
	Err        error
}

// Projector — проектор статусов с фиксированной таблицей иконок.
type Projector struct {
	icons    IconTable
	fallback string
}

// NewProjector создаёт проектор. Таблица копируется; nil — таблица по умолчанию.
// Пустой fallback заменяется на FallbackIcon.
func NewProjector(icons IconTable, fallback string) *Projector {
	if icons == nil {
		icons = DefaultIcons()
	}
	copied := make(IconTable, len(icons))
	for k, v := range icons {
		copied[k] = v
	}
	if fallback == "" {
		fallback = FallbackIcon
	}
	return &Projector{icons: copied, fallback: fallback}
}

// IconID возвращает иконку категории. Неизвестная категория — fallback, не ошибка.
func (p *Projector) IconID(category attachment.Category) string {
	if icon, ok := p.icons[category]; ok && icon != "" {
		return icon
	}
	return p.fallback
}

// StatusColor возвращает цвет статуса. Состояние вне трёх допустимых —
// нарушение контракта хранилища, возвращается ErrInvalidState.
func StatusColor(state attachment.LifecycleState) (Color, error) {
	c, ok := statusColors[state]
	if !ok {
		return "", fmt.Errorf("%w: %q", attachment.ErrInvalidState, state)
	}
	return c, nil
}

// StatusColor — то же, что пакетная StatusColor.
func (p *Projector) StatusColor(state attachment.LifecycleState) (Color, error) {
	return StatusColor(state)
}

// Label возвращает имя файла с размером, если он известен: "a.csv (1.0 KB)".
func (p *Projector) Label(rec attachment.Record) string {
	if rec.SizeBytes == nil {
		return rec.Filename
	}
	return fmt.Sprintf("%s (%s)", rec.Filename, FormatSize(*rec.SizeBytes))
}

// Describe строит дескриптор записи. Запись, нарушающая инварианты, даёт ErrInvalidState.
func (p *Projector) Describe(rec attachment.Record) (Descriptor, error) {
	if err := rec.Validate(); err != nil {
		return Descriptor{}, err
	}
	color, err := StatusColor(rec.State)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		IconID:      p.IconID(rec.Category),
		StatusColor: color,
		Label:       p.Label(rec),
	}, nil
}

// DescribeAll проецирует последовательность записей. Ошибка одной записи
// попадает в её Item и не прерывает остальные.
func (p *Projector) DescribeAll(records iter.Seq[attachment.Record]) []Item {
	var items []Item
	for rec := range records {
		d, err := p.Describe(rec)
		items = append(items, Item{Record: rec, Descriptor: d, Err: err})
	}
	return items
}
