package usecase

import (
	"context"
	"time"

	"log/slog"

	"server/internal/modules/notification"
	"server/internal/modules/notification/dispatcher"
	"server/internal/modules/order"
	"server/pkg/lib/pushsender"
)

type NotificationUseCase struct {
	dispatcher *dispatcher.NotificationDispatcher
	orders     order.Repo
	repo       notification.Repo
	log        *slog.Logger
}

func NewNotificationUseCase(
	log *slog.Logger,
	d *dispatcher.NotificationDispatcher,
	orders order.Repo,
	repo notification.Repo,
) *NotificationUseCase {
	return &NotificationUseCase{
		dispatcher: d,
		orders:     orders,
		repo:       repo,
		log:        log,
	}
}

// ProcessOrder проверяет принадлежность заказа пользователю и запускает
// цикл напоминаний. Чужой заказ неотличим от несуществующего.
func (uc *NotificationUseCase) ProcessOrder(ctx context.Context, orderID uint, userID uint) (*notification.DispatchResult, error) {
	op := "NotificationUseCase.ProcessOrder"
	log := uc.log.With(slog.String("op", op), slog.Uint64("orderID", uint64(orderID)), slog.Uint64("userID", uint64(userID)))

	o, err := uc.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		log.Warn("order belongs to another user")
		return nil, order.ErrOrderNotFound
	}

	return uc.dispatcher.ProcessOrder(ctx, orderID)
}

func (uc *NotificationUseCase) ListAuditLog(ctx context.Context, userID uint, filter notification.AuditFilter) ([]notification.AuditEntry, error) {
	return uc.repo.GetAuditEntries(ctx, userID, filter)
}

func (uc *NotificationUseCase) SendTestNotification(ctx context.Context, userID uint, req notification.SendTestRequest) (*notification.DispatchResult, error) {
	msg := pushsender.Message{
		Title: req.Title,
		Body:  req.Body,
		Data:  map[string]string{"window": notification.KindManual},
	}
	return uc.dispatcher.SendManual(ctx, userID, msg)
}

// SweepDueOrders - периодический обход: каждый активный заказ с датой
// сегодня или завтра прогоняется через диспетчер. Ошибка по одному
// заказу не прерывает обход остальных.
func (uc *NotificationUseCase) SweepDueOrders(ctx context.Context) error {
	op := "NotificationUseCase.SweepDueOrders"
	log := uc.log.With(slog.String("op", op))

	orders, err := uc.orders.GetOrdersForReminderSweep(ctx, time.Now())
	if err != nil {
		log.Error("failed to load orders for sweep", "error", err)
		return err
	}

	var processed, dispatched, failed int
	for _, o := range orders {
		result, err := uc.dispatcher.ProcessOrder(ctx, o.OrderID)
		if err != nil {
			failed++
			log.Error("sweep dispatch failed", slog.Uint64("orderID", uint64(o.OrderID)), "error", err)
			continue
		}
		processed++
		if result.Skipped == "" {
			dispatched++
		}
	}

	log.Info("reminder sweep complete",
		slog.Int("candidates", len(orders)),
		slog.Int("processed", processed),
		slog.Int("dispatched", dispatched),
		slog.Int("failed", failed))
	return nil
}
