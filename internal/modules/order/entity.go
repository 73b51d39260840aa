// internal/modules/order/entity.go
package order

import (
	"context"
	"time"
)

// Статусы жизненного цикла заказа. Напоминания уходят только по активным.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Индексы слотов напоминаний. Слот 0 зарезервирован под разовое
// напоминание "заказ сегодня", 1..3 - дневные окна накануне.
const (
	SlotDueToday = 0
	SlotWindow1  = 1
	SlotWindow2  = 2
	SlotWindow3  = 3
	SlotCount    = 4
)

// Order - GORM модель для таблицы 'orders'. CRUD заказов живет снаружи,
// ядро читает заказ и пишет только флаги отправленных напоминаний.
type Order struct {
	OrderID     uint      `gorm:"primaryKey;column:order_id;autoIncrement"`
	UserID      uint      `gorm:"column:user_id;not null;index"`
	OrderNumber string    `gorm:"type:varchar(50);not null;column:order_number"`
	OrderDate   time.Time `gorm:"type:date;not null;column:order_date"`
	OrderTime   string    `gorm:"type:varchar(8);column:order_time"`
	Status      string    `gorm:"type:varchar(20);default:'pending';not null;column:status"`
	IsDeleted   bool      `gorm:"default:false;not null;column:is_deleted"`

	// Флаги слотов монотонны: однажды выставленный флаг не сбрасывается.
	DueTodaySent        bool       `gorm:"default:false;not null;column:due_today_sent"`
	DueTodaySentAt      *time.Time `gorm:"column:due_today_sent_at"`
	Notification1Sent   bool       `gorm:"default:false;not null;column:notification_1_sent"`
	Notification1SentAt *time.Time `gorm:"column:notification_1_sent_at"`
	Notification2Sent   bool       `gorm:"default:false;not null;column:notification_2_sent"`
	Notification2SentAt *time.Time `gorm:"column:notification_2_sent_at"`
	Notification3Sent   bool       `gorm:"default:false;not null;column:notification_3_sent"`
	Notification3SentAt *time.Time `gorm:"column:notification_3_sent_at"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (Order) TableName() string {
	return "orders"
}

// IsActive сообщает, имеет ли смысл слать напоминания по заказу.
func (o *Order) IsActive() bool {
	return !o.IsDeleted && (o.Status == StatusPending || o.Status == StatusProcessing)
}

// SlotSent возвращает флаг слота напоминания по индексу.
func (o *Order) SlotSent(slot int) bool {
	switch slot {
	case SlotDueToday:
		return o.DueTodaySent
	case SlotWindow1:
		return o.Notification1Sent
	case SlotWindow2:
		return o.Notification2Sent
	case SlotWindow3:
		return o.Notification3Sent
	}
	return false
}

// MarkSlotSent выставляет флаг слота в загруженной модели. Персистентная
// запись делается через Repo.MarkSlotSent, здесь только in-memory состояние.
func (o *Order) MarkSlotSent(slot int, ts time.Time) {
	switch slot {
	case SlotDueToday:
		o.DueTodaySent = true
		o.DueTodaySentAt = &ts
	case SlotWindow1:
		o.Notification1Sent = true
		o.Notification1SentAt = &ts
	case SlotWindow2:
		o.Notification2Sent = true
		o.Notification2SentAt = &ts
	case SlotWindow3:
		o.Notification3Sent = true
		o.Notification3SentAt = &ts
	}
}

type Repo interface {
	GetOrderByID(ctx context.Context, orderID uint) (*Order, error)
	// GetOrdersForReminderSweep возвращает активные заказы с датой
	// сегодня или завтра - кандидатов периодического обхода.
	GetOrdersForReminderSweep(ctx context.Context, now time.Time) ([]*Order, error)
	// MarkSlotSent - условный UPDATE (flag = false -> true). Повторный
	// вызов для уже выставленного флага - no-op без ошибки.
	MarkSlotSent(ctx context.Context, orderID uint, slot int, ts time.Time) error
}
