// Package window решает, какое из трех дневных окон напоминаний
// применимо к заказу. Чистая функция от "сейчас" и даты заказа:
// никакого обращения к часам процесса, "сейчас" всегда инжектируется.
package window

import "time"

type Decision int

const (
	NoWindow Decision = iota // завтра, но текущий час вне всех окон
	Window1                  // [8, 13)
	Window2                  // [13, 19)
	Window3                  // [19, 23)
	DueToday                 // дата исполнения - сегодня, немедленное напоминание
	NotYetEligible           // до даты исполнения больше суток
	Past                     // дата исполнения уже прошла
)

// Слоты флагов отправки в заказе: 0 - due-today, 1..3 - окна.
const (
	SlotDueToday = 0
	SlotWindow1  = 1
	SlotWindow2  = 2
	SlotWindow3  = 3
)

// Evaluate - полная функция: для любой пары входов возвращает решение,
// никогда не ошибку. Границы окон полуоткрытые [start, end).
func Evaluate(now time.Time, dueDate time.Time) Decision {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	due := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case due.Before(today):
		return Past
	case due.Equal(today):
		return DueToday
	case due.Equal(today.AddDate(0, 0, 1)):
		switch h := now.Hour(); {
		case h >= 8 && h < 13:
			return Window1
		case h >= 13 && h < 19:
			return Window2
		case h >= 19 && h < 23:
			return Window3
		default:
			return NoWindow
		}
	default:
		return NotYetEligible
	}
}

// Slot возвращает индекс слота флага отправки для решения,
// либо -1, если решение не предполагает отправку.
func (d Decision) Slot() int {
	switch d {
	case DueToday:
		return SlotDueToday
	case Window1:
		return SlotWindow1
	case Window2:
		return SlotWindow2
	case Window3:
		return SlotWindow3
	default:
		return -1
	}
}

// SlotKind - тег вида уведомления по индексу слота.
func SlotKind(slot int) string {
	switch slot {
	case SlotDueToday:
		return "due-today"
	case SlotWindow1:
		return "window-1"
	case SlotWindow2:
		return "window-2"
	case SlotWindow3:
		return "window-3"
	default:
		return ""
	}
}

func (d Decision) String() string {
	switch d {
	case NoWindow:
		return "no-window"
	case Window1:
		return "window-1"
	case Window2:
		return "window-2"
	case Window3:
		return "window-3"
	case DueToday:
		return "due-today"
	case NotYetEligible:
		return "not-yet-eligible"
	case Past:
		return "past"
	default:
		return "unknown"
	}
}
