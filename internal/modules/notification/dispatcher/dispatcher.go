// internal/modules/notification/dispatcher/dispatcher.go
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"server/internal/modules/endpoint"
	"server/internal/modules/notification"
	"server/internal/modules/notification/window"
	"server/internal/modules/order"
	"server/pkg/lib/keymutex"
	"server/pkg/lib/pushsender"
)

// OrderStore - состояние цикла напоминаний. Флаги слотов обновляются
// условным UPDATE, так что повторная пометка уже отправленного слота
// безопасна.
type OrderStore interface {
	GetOrderByID(ctx context.Context, orderID uint) (*order.Order, error)
	MarkSlotSent(ctx context.Context, orderID uint, slot int, ts time.Time) error
}

// EndpointRegistry - реестр адресов доставки получателя.
type EndpointRegistry interface {
	ListForUser(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error)
	Invalidate(ctx context.Context, endpointID uint) error
}

// AuditLog - журнал попыток доставки.
type AuditLog interface {
	AppendAuditEntry(ctx context.Context, entry *notification.AuditEntry) error
}

// Publisher рассылает событие диспетчеризации подписчикам операционного
// канала (websocket). Может быть nil.
type Publisher interface {
	Publish(v interface{})
}

// Config - параметры fan-out.
type Config struct {
	FanOut      int           // одновременных отправок на один заказ
	SendTimeout time.Duration // таймаут одной отправки
}

const (
	defaultFanOut      = 8
	defaultSendTimeout = 10 * time.Second
)

// DispatchEvent - сообщение операционного канала о прошедшей рассылке.
type DispatchEvent struct {
	Type    string                       `json:"type"`
	UserID  uint                         `json:"user_id"`
	OrderID uint                         `json:"order_id,omitempty"`
	Kind    string                       `json:"kind,omitempty"`
	Result  *notification.DispatchResult `json:"result"`
}

// NotificationDispatcher оркестрирует цикл напоминаний: решает, какое
// окно применимо, проверяет флаг слота, раздает сообщение по всем
// эндпоинтам пользователя и фиксирует результат.
type NotificationDispatcher struct {
	orders    OrderStore
	endpoints EndpointRegistry
	audit     AuditLog
	channels  map[string]pushsender.Sender
	publisher Publisher
	locks     *keymutex.KeyMutex
	now       func() time.Time
	cfg       Config
	log       *slog.Logger
}

func NewNotificationDispatcher(
	log *slog.Logger,
	orders OrderStore,
	endpoints EndpointRegistry,
	audit AuditLog,
	channels map[string]pushsender.Sender,
	publisher Publisher,
	cfg Config,
) *NotificationDispatcher {
	if cfg.FanOut <= 0 {
		cfg.FanOut = defaultFanOut
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &NotificationDispatcher{
		orders:    orders,
		endpoints: endpoints,
		audit:     audit,
		channels:  channels,
		publisher: publisher,
		locks:     keymutex.New(),
		now:       time.Now,
		cfg:       cfg,
		log:       log,
	}
}

// ProcessOrder прогоняет один заказ через цикл напоминаний.
// Ошибки каналов доставки сводятся к исходам и наружу не выходят;
// жесткая ошибка означает, что состояние цикла нельзя прочитать
// или сохранить.
func (d *NotificationDispatcher) ProcessOrder(ctx context.Context, orderID uint) (*notification.DispatchResult, error) {
	op := "NotificationDispatcher.ProcessOrder"
	log := d.log.With(slog.String("op", op), slog.Uint64("orderID", uint64(orderID)))

	// Проверка флага и последующая пометка - это check-then-act:
	// два конкурентных вызова по одному заказу сериализуются здесь,
	// заказ перечитывается уже под замком.
	lockKey := fmt.Sprintf("order:%d", orderID)
	d.locks.Lock(lockKey)
	defer d.locks.Unlock(lockKey)

	o, err := d.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	log = log.With(slog.Uint64("userID", uint64(o.UserID)))

	if !o.IsActive() {
		log.Debug("order inactive, skipping", slog.String("status", o.Status))
		return skipped(notification.SkipInactive, ""), nil
	}

	now := d.now()
	decision := window.Evaluate(now, o.OrderDate)
	switch decision {
	case window.Past:
		return skipped(notification.SkipStale, ""), nil
	case window.NotYetEligible:
		return skipped(notification.SkipNotYetEligible, ""), nil
	case window.NoWindow:
		return skipped(notification.SkipOutsideHours, ""), nil
	}

	slot := decision.Slot()
	if o.SlotSent(slot) {
		// Evaluate уже выбрал самое позднее открывшееся окно, а более
		// поздние в этот час еще закрыты. Внутри одного вызова
		// продвигаться некуда: повтор в том же окне - no-op.
		log.Debug("reminder slot already sent", slog.Int("slot", slot))
		return skipped(notification.SkipAlreadyComplete, window.SlotKind(slot)), nil
	}

	kind := window.SlotKind(slot)
	cycleID := uuid.New().String()
	log = log.With(slog.String("kind", kind), slog.String("cycleID", cycleID))

	endpoints, err := d.endpoints.ListForUser(ctx, o.UserID)
	if err != nil {
		log.Error("failed to list endpoints", "error", err)
		return nil, notification.ErrNotificationState
	}

	if len(endpoints) == 0 {
		// Пустой реестр - легальный исход: слот помечается отправленным,
		// чтобы подписка, появившаяся позже, не получила запоздалое
		// напоминание из уже прошедшего окна.
		if err := d.orders.MarkSlotSent(ctx, o.OrderID, slot, now); err != nil {
			log.Error("failed to mark slot sent", "error", err)
			return nil, notification.ErrNotificationState
		}
		if err := d.appendAudit(ctx, o, kind, cycleID, "no endpoints registered, reminder cycle advanced", 0, 0, 0); err != nil {
			return nil, err
		}
		log.Info("no endpoints registered, slot marked sent")
		result := skipped(notification.SkipNoRecipients, kind)
		d.publish(o.UserID, o.OrderID, kind, result)
		return result, nil
	}

	msg := d.buildMessage(o, kind)
	outcomes := d.fanOut(ctx, endpoints, msg)

	var delivered, invalid, transient int
	for i, outcome := range outcomes {
		switch outcome.Result {
		case pushsender.Delivered:
			delivered++
		case pushsender.EndpointInvalid:
			invalid++
			// Чистка мертвого адреса не должна ронять рассылку:
			// при ошибке эндпоинт переживет до следующего цикла.
			if err := d.endpoints.Invalidate(ctx, endpoints[i].EndpointID); err != nil {
				log.Error("failed to invalidate endpoint",
					slog.Uint64("endpointID", uint64(endpoints[i].EndpointID)), "error", err)
			} else {
				log.Info("invalidated dead endpoint",
					slog.Uint64("endpointID", uint64(endpoints[i].EndpointID)),
					slog.String("detail", outcome.Detail))
			}
		case pushsender.TransientFailure:
			transient++
			log.Warn("transient delivery failure",
				slog.String("address", outcome.Address), slog.String("detail", outcome.Detail))
		}
	}

	// Слот помечается, когда повторять больше нечего: хоть одна доставка
	// прошла, либо вся аудитория оказалась мертвой. Если все сбои
	// временные - слот не трогаем, следующий цикл в том же окне повторит.
	markSent := delivered > 0 || transient == 0
	if markSent {
		if err := d.orders.MarkSlotSent(ctx, o.OrderID, slot, now); err != nil {
			log.Error("failed to mark slot sent", "error", err)
			return nil, notification.ErrNotificationState
		}
	}

	summary := fmt.Sprintf("dispatched to %d endpoint(s): %d delivered, %d invalid, %d transient",
		len(endpoints), delivered, invalid, transient)
	if !markSent {
		summary += "; slot left unset for retry"
	}
	if err := d.appendAudit(ctx, o, kind, cycleID, summary, delivered, invalid, transient); err != nil {
		return nil, err
	}

	log.Info("dispatch complete",
		slog.Int("delivered", delivered),
		slog.Int("invalid", invalid),
		slog.Int("transient", transient),
		slog.Bool("markedSent", markSent))

	result := &notification.DispatchResult{
		Processed: len(endpoints),
		Sent:      delivered,
		Failed:    invalid + transient,
		Window:    kind,
	}
	d.publish(o.UserID, o.OrderID, kind, result)
	return result, nil
}

// SendManual раздает произвольное сообщение по всем эндпоинтам
// пользователя вне цикла напоминаний. Флаги заказов не трогаются.
func (d *NotificationDispatcher) SendManual(ctx context.Context, userID uint, msg pushsender.Message) (*notification.DispatchResult, error) {
	op := "NotificationDispatcher.SendManual"
	log := d.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)))

	endpoints, err := d.endpoints.ListForUser(ctx, userID)
	if err != nil {
		log.Error("failed to list endpoints", "error", err)
		return nil, notification.ErrNotificationState
	}

	cycleID := uuid.New().String()
	if len(endpoints) == 0 {
		entry := &notification.AuditEntry{
			UserID:  userID,
			Kind:    notification.KindManual,
			Message: "manual notification requested, no endpoints registered",
			CycleID: cycleID,
		}
		if err := d.audit.AppendAuditEntry(ctx, entry); err != nil {
			log.Error("failed to append audit entry", "error", err)
			return nil, notification.ErrNotificationState
		}
		return skipped(notification.SkipNoRecipients, notification.KindManual), nil
	}

	if msg.Tag == "" {
		msg.Tag = "manual-" + cycleID
	}
	outcomes := d.fanOut(ctx, endpoints, msg)

	var delivered, invalid, transient int
	for i, outcome := range outcomes {
		switch outcome.Result {
		case pushsender.Delivered:
			delivered++
		case pushsender.EndpointInvalid:
			invalid++
			if err := d.endpoints.Invalidate(ctx, endpoints[i].EndpointID); err != nil {
				log.Error("failed to invalidate endpoint",
					slog.Uint64("endpointID", uint64(endpoints[i].EndpointID)), "error", err)
			}
		case pushsender.TransientFailure:
			transient++
		}
	}

	entry := &notification.AuditEntry{
		UserID: userID,
		Kind:   notification.KindManual,
		Message: fmt.Sprintf("manual notification dispatched to %d endpoint(s): %d delivered, %d invalid, %d transient",
			len(endpoints), delivered, invalid, transient),
		Delivered: delivered,
		Invalid:   invalid,
		Transient: transient,
		CycleID:   cycleID,
	}
	if err := d.audit.AppendAuditEntry(ctx, entry); err != nil {
		log.Error("failed to append audit entry", "error", err)
		return nil, notification.ErrNotificationState
	}

	result := &notification.DispatchResult{
		Processed: len(endpoints),
		Sent:      delivered,
		Failed:    invalid + transient,
		Window:    notification.KindManual,
	}
	d.publish(userID, 0, notification.KindManual, result)
	return result, nil
}

// fanOut рассылает сообщение по всем эндпоинтам пулом воркеров.
// Исход i-й отправки лежит в i-й ячейке - мутаций состояния до
// возврата всех воркеров не происходит.
func (d *NotificationDispatcher) fanOut(ctx context.Context, endpoints []endpoint.DeliveryEndpoint, msg pushsender.Message) []pushsender.Outcome {
	outcomes := make([]pushsender.Outcome, len(endpoints))
	sem := make(chan struct{}, d.cfg.FanOut)
	var wg sync.WaitGroup

	for i := range endpoints {
		wg.Add(1)
		go func(i int, ep endpoint.DeliveryEndpoint) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sender, ok := d.channels[ep.Kind]
			if !ok {
				outcomes[i] = pushsender.Outcome{
					Kind:    ep.Kind,
					Address: ep.Address,
					Result:  pushsender.TransientFailure,
					Detail:  "no delivery channel configured for kind " + ep.Kind,
				}
				return
			}

			sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
			defer cancel()
			outcomes[i] = sender.Send(sendCtx, ep.Target(), msg)
		}(i, endpoints[i])
	}
	wg.Wait()
	return outcomes
}

func (d *NotificationDispatcher) buildMessage(o *order.Order, kind string) pushsender.Message {
	orderDate := o.OrderDate.Format("2006-01-02")

	var title, body string
	if kind == notification.KindDueToday {
		title = "Заказ сегодня"
		body = fmt.Sprintf("Заказ №%s назначен на сегодня", o.OrderNumber)
	} else {
		title = "Заказ завтра"
		body = fmt.Sprintf("Заказ №%s назначен на завтра", o.OrderNumber)
	}
	if o.OrderTime != "" {
		body += fmt.Sprintf(", к %s", o.OrderTime)
	}

	return pushsender.Message{
		Title: title,
		Body:  body,
		Tag:   fmt.Sprintf("order-%d-%s", o.OrderID, kind),
		Data: map[string]string{
			"orderId":     fmt.Sprintf("%d", o.OrderID),
			"orderNumber": o.OrderNumber,
			"orderDate":   orderDate,
			"orderTime":   o.OrderTime,
			"window":      kind,
		},
	}
}

func (d *NotificationDispatcher) appendAudit(ctx context.Context, o *order.Order, kind, cycleID, message string, delivered, invalid, transient int) error {
	orderID := o.OrderID
	entry := &notification.AuditEntry{
		UserID:    o.UserID,
		OrderID:   &orderID,
		Kind:      kind,
		Message:   message,
		Delivered: delivered,
		Invalid:   invalid,
		Transient: transient,
		CycleID:   cycleID,
	}
	if err := d.audit.AppendAuditEntry(ctx, entry); err != nil {
		d.log.Error("failed to append audit entry",
			slog.String("op", "NotificationDispatcher.appendAudit"),
			slog.Uint64("orderID", uint64(o.OrderID)), "error", err)
		return notification.ErrNotificationState
	}
	return nil
}

func (d *NotificationDispatcher) publish(userID, orderID uint, kind string, result *notification.DispatchResult) {
	if d.publisher == nil {
		return
	}
	d.publisher.Publish(DispatchEvent{
		Type:    "dispatch",
		UserID:  userID,
		OrderID: orderID,
		Kind:    kind,
		Result:  result,
	})
}

func skipped(reason, kind string) *notification.DispatchResult {
	return &notification.DispatchResult{Window: kind, Skipped: reason}
}
