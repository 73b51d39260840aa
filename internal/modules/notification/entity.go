// internal/modules/notification/entity.go
package notification

import (
	"context"
	"net/http"
	"time"
)

// --- Теги вида уведомления ---
// Под этими тегами записи попадают в журнал аудита и в dedup-тег сообщения.

const (
	KindWindow1  = "window-1"
	KindWindow2  = "window-2"
	KindWindow3  = "window-3"
	KindDueToday = "due-today"
	KindManual   = "manual"
)

// --- Причины пропуска диспетчеризации ---

const (
	SkipInactive        = "inactive"         // заказ удален или в терминальном статусе
	SkipNotYetEligible  = "not-yet-eligible" // до даты заказа больше суток
	SkipStale           = "stale"            // дата заказа уже прошла
	SkipOutsideHours    = "outside-hours"    // текущий час вне всех окон напоминаний
	SkipAlreadyComplete = "already-complete" // все напоминания по заказу уже отправлены
	SkipNoRecipients    = "no-recipients"    // у пользователя нет ни одного эндпоинта
)

// AuditEntry - запись журнала доставки. Журнал append-only: записи
// никогда не изменяются и не удаляются диспетчером (только архиватором).
type AuditEntry struct {
	AuditID   uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uint      `gorm:"not null;index"`
	OrderID   *uint     `gorm:"index"` // nil для записей, не привязанных к заказу
	Kind      string    `gorm:"type:varchar(16);not null;index"`
	Message   string    `gorm:"type:text;not null"`
	Delivered int       `gorm:"not null;default:0"`
	Invalid   int       `gorm:"not null;default:0"`
	Transient int       `gorm:"not null;default:0"`
	CycleID   string    `gorm:"type:varchar(36);index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (AuditEntry) TableName() string {
	return "notification_audit"
}

// AuditFilter - параметры выборки журнала. Нулевые указатели означают
// "без ограничения по этому полю".
type AuditFilter struct {
	OrderID *uint
	Kind    *string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// DispatchResult - итог одного вызова ProcessOrder, который вызывающая
// сторона может показать в своем ответе.
type DispatchResult struct {
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Window    string `json:"window,omitempty"`
	Skipped   string `json:"skipped,omitempty"`
}

// --- DTO ---

type AuditEntryResponse struct {
	AuditID   uint      `json:"audit_id"`
	OrderID   *uint     `json:"order_id,omitempty"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Delivered int       `json:"delivered"`
	Invalid   int       `json:"invalid"`
	Transient int       `json:"transient"`
	CycleID   string    `json:"cycle_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToAuditEntryResponse(e *AuditEntry) *AuditEntryResponse {
	return &AuditEntryResponse{
		AuditID:   e.AuditID,
		OrderID:   e.OrderID,
		Kind:      e.Kind,
		Message:   e.Message,
		Delivered: e.Delivered,
		Invalid:   e.Invalid,
		Transient: e.Transient,
		CycleID:   e.CycleID,
		CreatedAt: e.CreatedAt,
	}
}

func ToAuditEntryResponseList(entries []AuditEntry) []*AuditEntryResponse {
	responses := make([]*AuditEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, ToAuditEntryResponse(&entries[i]))
	}
	return responses
}

type SendTestRequest struct {
	Title string `json:"title" validate:"required,max=128"`
	Body  string `json:"body" validate:"required,max=512"`
}

// --- Интерфейсы ---

type Controller interface {
	DispatchOrder(w http.ResponseWriter, r *http.Request)
	ListAudit(w http.ResponseWriter, r *http.Request)
	SendTestNotification(w http.ResponseWriter, r *http.Request)
}

type UseCase interface {
	// ProcessOrder прогоняет заказ через цикл напоминаний. Возвращает
	// сводку даже при частичном провале рассылки; жесткая ошибка -
	// только когда состояние рассылки нельзя определить или сохранить.
	ProcessOrder(ctx context.Context, orderID uint, userID uint) (*DispatchResult, error)
	ListAuditLog(ctx context.Context, userID uint, filter AuditFilter) ([]AuditEntry, error)
	SendTestNotification(ctx context.Context, userID uint, req SendTestRequest) (*DispatchResult, error)
	// SweepDueOrders - периодический проход по всем заказам, у которых
	// дата исполнения сегодня или завтра.
	SweepDueOrders(ctx context.Context) error
}

type Repo interface {
	AppendAuditEntry(ctx context.Context, entry *AuditEntry) error
	GetAuditEntries(ctx context.Context, userID uint, filter AuditFilter) ([]AuditEntry, error)
	GetAuditEntriesBefore(ctx context.Context, cutoff time.Time, limit int) ([]AuditEntry, error)
	DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
