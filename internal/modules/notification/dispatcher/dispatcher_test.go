package dispatcher

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"log/slog"

	"server/internal/modules/endpoint"
	"server/internal/modules/notification"
	"server/internal/modules/order"
	"server/pkg/lib/pushsender"
)

// --- моки ---

type mockOrderStore struct {
	mu      sync.Mutex
	order   *order.Order
	getErr  error
	markErr error
	marked  []int
}

func (m *mockOrderStore) GetOrderByID(_ context.Context, orderID uint) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp := *m.order
	return &cp, nil
}

func (m *mockOrderStore) MarkSlotSent(_ context.Context, orderID uint, slot int, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, slot)
	m.order.MarkSlotSent(slot, ts)
	return nil
}

type mockRegistry struct {
	mu          sync.Mutex
	endpoints   []endpoint.DeliveryEndpoint
	listErr     error
	invalidated []uint
}

func (m *mockRegistry) ListForUser(_ context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]endpoint.DeliveryEndpoint(nil), m.endpoints...), nil
}

func (m *mockRegistry) Invalidate(_ context.Context, endpointID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, endpointID)
	return nil
}

type mockAudit struct {
	mu      sync.Mutex
	entries []notification.AuditEntry
}

func (m *mockAudit) AppendAuditEntry(_ context.Context, entry *notification.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

type mockSender struct {
	mu     sync.Mutex
	result pushsender.Result
	sent   []pushsender.Message
}

func (m *mockSender) Send(_ context.Context, target pushsender.Target, msg pushsender.Message) pushsender.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return pushsender.Outcome{Kind: target.Kind, Address: target.Address, Result: m.result}
}

func (m *mockSender) Ping(_ context.Context) error { return nil }

func (m *mockSender) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// --- хелперы ---

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func testOrder(due time.Time) *order.Order {
	return &order.Order{
		OrderID:     42,
		UserID:      7,
		OrderNumber: "A-100",
		OrderDate:   due,
		OrderTime:   "12:00",
		Status:      order.StatusPending,
	}
}

func webPushEndpoint(id uint) endpoint.DeliveryEndpoint {
	return endpoint.DeliveryEndpoint{
		EndpointID: id,
		UserID:     7,
		Kind:       pushsender.KindWebPush,
		Address:    "https://push.example.com/sub",
		P256dhKey:  "p256dh",
		AuthKey:    "auth",
	}
}

func newTestDispatcher(store *mockOrderStore, reg *mockRegistry, audit *mockAudit, sender *mockSender, now time.Time) *NotificationDispatcher {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	channels := map[string]pushsender.Sender{}
	if sender != nil {
		channels[pushsender.KindWebPush] = sender
	}
	d := NewNotificationDispatcher(log, store, reg, audit, channels, nil, Config{FanOut: 4, SendTimeout: time.Second})
	d.now = func() time.Time { return now }
	return d
}

// --- тесты ---

func TestProcessOrder_InactiveOrderSkipped(t *testing.T) {
	o := testOrder(testNow.AddDate(0, 0, 1))
	o.Status = order.StatusCompleted
	store := &mockOrderStore{order: o}
	reg := &mockRegistry{}
	audit := &mockAudit{}

	d := newTestDispatcher(store, reg, audit, nil, testNow)
	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != notification.SkipInactive {
		t.Errorf("expected skip reason %q, got %q", notification.SkipInactive, result.Skipped)
	}
	if len(store.marked) != 0 {
		t.Errorf("inactive order must not mark any slot, marked %v", store.marked)
	}
}

func TestProcessOrder_OutsideReminderHoursSkipped(t *testing.T) {
	now := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC)
	store := &mockOrderStore{order: testOrder(now.AddDate(0, 0, 1))}
	d := newTestDispatcher(store, &mockRegistry{}, &mockAudit{}, nil, now)

	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != notification.SkipOutsideHours {
		t.Errorf("expected skip reason %q, got %q", notification.SkipOutsideHours, result.Skipped)
	}
}

func TestProcessOrder_NoEndpointsMarksSlotAndAudits(t *testing.T) {
	store := &mockOrderStore{order: testOrder(testNow.AddDate(0, 0, 1))}
	reg := &mockRegistry{}
	audit := &mockAudit{}

	d := newTestDispatcher(store, reg, audit, nil, testNow)
	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Skipped != notification.SkipNoRecipients {
		t.Errorf("expected skip reason %q, got %q", notification.SkipNoRecipients, result.Skipped)
	}
	if len(store.marked) != 1 || store.marked[0] != order.SlotWindow1 {
		t.Errorf("expected window-1 slot marked, got %v", store.marked)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.entries))
	}
	if audit.entries[0].Kind != notification.KindWindow1 {
		t.Errorf("expected audit kind %q, got %q", notification.KindWindow1, audit.entries[0].Kind)
	}
}

func TestProcessOrder_AdvancesToSecondWindow(t *testing.T) {
	now := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)
	o := testOrder(now.AddDate(0, 0, 1))
	o.Notification1Sent = true
	store := &mockOrderStore{order: o}
	reg := &mockRegistry{endpoints: []endpoint.DeliveryEndpoint{webPushEndpoint(1), webPushEndpoint(2)}}
	audit := &mockAudit{}
	sender := &mockSender{result: pushsender.Delivered}

	d := newTestDispatcher(store, reg, audit, sender, now)
	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Sent != 2 {
		t.Errorf("expected 2 delivered, got %d", result.Sent)
	}
	if result.Window != notification.KindWindow2 {
		t.Errorf("expected window %q, got %q", notification.KindWindow2, result.Window)
	}
	if sender.sentCount() != 2 {
		t.Fatalf("expected 2 sends, got %d", sender.sentCount())
	}
	for _, msg := range sender.sent {
		if msg.Tag != "order-42-window-2" {
			t.Errorf("expected dedup tag order-42-window-2, got %q", msg.Tag)
		}
		if msg.Data["window"] != notification.KindWindow2 {
			t.Errorf("expected payload window %q, got %q", notification.KindWindow2, msg.Data["window"])
		}
	}
	if len(store.marked) != 1 || store.marked[0] != order.SlotWindow2 {
		t.Errorf("expected window-2 slot marked, got %v", store.marked)
	}
	if len(audit.entries) != 1 || audit.entries[0].Delivered != 2 {
		t.Errorf("expected audit entry with 2 delivered, got %+v", audit.entries)
	}
}

func TestProcessOrder_AllWindowsSentSkipsComplete(t *testing.T) {
	now := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)
	o := testOrder(now.AddDate(0, 0, 1))
	o.Notification1Sent = true
	o.Notification2Sent = true
	o.Notification3Sent = true
	store := &mockOrderStore{order: o}

	d := newTestDispatcher(store, &mockRegistry{}, &mockAudit{}, nil, now)
	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != notification.SkipAlreadyComplete {
		t.Errorf("expected skip reason %q, got %q", notification.SkipAlreadyComplete, result.Skipped)
	}
}

func TestProcessOrder_CurrentWindowSentDoesNotFireLaterWindowEarly(t *testing.T) {
	// 14:30, окно 2 уже отправлено. Окно 3 откроется только в 19:00,
	// а окно 1 упущено навсегда: рассылать нечего и помечать нечего.
	now := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)
	o := testOrder(now.AddDate(0, 0, 1))
	o.Notification2Sent = true
	store := &mockOrderStore{order: o}
	reg := &mockRegistry{endpoints: []endpoint.DeliveryEndpoint{webPushEndpoint(1)}}
	sender := &mockSender{result: pushsender.Delivered}

	d := newTestDispatcher(store, reg, &mockAudit{}, sender, now)
	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != notification.SkipAlreadyComplete {
		t.Errorf("expected skip reason %q, got %q", notification.SkipAlreadyComplete, result.Skipped)
	}
	if sender.sentCount() != 0 {
		t.Errorf("expected no sends, got %d", sender.sentCount())
	}
	if len(store.marked) != 0 {
		t.Errorf("expected no slots marked, got %v", store.marked)
	}
}

func TestProcessOrder_AllTransientLeavesSlotUnset(t *testing.T) {
	store := &mockOrderStore{order: testOrder(testNow.AddDate(0, 0, 1))}
	reg := &mockRegistry{endpoints: []endpoint.DeliveryEndpoint{webPushEndpoint(1), webPushEndpoint(2)}}
	audit := &mockAudit{}
	sender := &mockSender{result: pushsender.TransientFailure}

	d := newTestDispatcher(store, reg, audit, sender, testNow)
	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.marked) != 0 {
		t.Errorf("transient-only dispatch must not mark the slot, marked %v", store.marked)
	}
	if result.Sent != 0 || result.Failed != 2 {
		t.Errorf("expected 0 sent / 2 failed, got %d / %d", result.Sent, result.Failed)
	}
	if len(audit.entries) != 1 || audit.entries[0].Transient != 2 {
		t.Errorf("expected audit entry with 2 transient, got %+v", audit.entries)
	}
}

func TestProcessOrder_InvalidEndpointsPrunedAndSlotMarked(t *testing.T) {
	now := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	store := &mockOrderStore{order: testOrder(now)} // заказ сегодня
	reg := &mockRegistry{endpoints: []endpoint.DeliveryEndpoint{webPushEndpoint(1)}}
	audit := &mockAudit{}
	sender := &mockSender{result: pushsender.EndpointInvalid}

	d := newTestDispatcher(store, reg, audit, sender, now)
	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reg.invalidated) != 1 || reg.invalidated[0] != 1 {
		t.Errorf("expected endpoint 1 invalidated, got %v", reg.invalidated)
	}
	// Вся аудитория мертва - повторять нечего, слот due-today помечается.
	if len(store.marked) != 1 || store.marked[0] != order.SlotDueToday {
		t.Errorf("expected due-today slot marked, got %v", store.marked)
	}
	if result.Window != notification.KindDueToday {
		t.Errorf("expected window %q, got %q", notification.KindDueToday, result.Window)
	}
	if len(audit.entries) != 1 || audit.entries[0].Invalid != 1 {
		t.Errorf("expected audit entry with 1 invalid, got %+v", audit.entries)
	}
}

func TestProcessOrder_SecondCallSameWindowSendsNothing(t *testing.T) {
	store := &mockOrderStore{order: testOrder(testNow.AddDate(0, 0, 1))}
	reg := &mockRegistry{endpoints: []endpoint.DeliveryEndpoint{webPushEndpoint(1), webPushEndpoint(2)}}
	audit := &mockAudit{}
	sender := &mockSender{result: pushsender.Delivered}

	d := newTestDispatcher(store, reg, audit, sender, testNow)
	if _, err := d.ProcessOrder(context.Background(), 42); err != nil {
		t.Fatalf("first call: %v", err)
	}
	result, err := d.ProcessOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if result.Skipped != notification.SkipAlreadyComplete {
		t.Errorf("expected second call skipped as %q, got %q", notification.SkipAlreadyComplete, result.Skipped)
	}
	if sender.sentCount() != 2 {
		t.Errorf("expected at most one send per endpoint across both calls, got %d", sender.sentCount())
	}
}

func TestProcessOrder_MarkSentFailureSurfaces(t *testing.T) {
	store := &mockOrderStore{
		order:   testOrder(testNow.AddDate(0, 0, 1)),
		markErr: errors.New("connection refused"),
	}
	reg := &mockRegistry{endpoints: []endpoint.DeliveryEndpoint{webPushEndpoint(1)}}
	sender := &mockSender{result: pushsender.Delivered}

	d := newTestDispatcher(store, reg, &mockAudit{}, sender, testNow)
	_, err := d.ProcessOrder(context.Background(), 42)
	if !errors.Is(err, notification.ErrNotificationState) {
		t.Fatalf("expected ErrNotificationState, got %v", err)
	}
}

func TestSendManual_DispatchesWithoutTouchingOrders(t *testing.T) {
	store := &mockOrderStore{order: testOrder(testNow)}
	reg := &mockRegistry{endpoints: []endpoint.DeliveryEndpoint{webPushEndpoint(1)}}
	audit := &mockAudit{}
	sender := &mockSender{result: pushsender.Delivered}

	d := newTestDispatcher(store, reg, audit, sender, testNow)
	result, err := d.SendManual(context.Background(), 7, pushsender.Message{Title: "Проверка", Body: "Тест"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Sent != 1 || result.Window != notification.KindManual {
		t.Errorf("unexpected result %+v", result)
	}
	if len(store.marked) != 0 {
		t.Errorf("manual send must not touch order slots, marked %v", store.marked)
	}
	if len(audit.entries) != 1 || audit.entries[0].Kind != notification.KindManual {
		t.Errorf("expected manual audit entry, got %+v", audit.entries)
	}
}
