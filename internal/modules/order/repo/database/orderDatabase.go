package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"server/internal/modules/order"
)

// slotColumns - фиксированная таблица колонок по индексу слота. Имена
// колонок не собираются из строк в рантайме.
var slotColumns = [order.SlotCount]struct {
	flag   string
	sentAt string
}{
	{"due_today_sent", "due_today_sent_at"},
	{"notification_1_sent", "notification_1_sent_at"},
	{"notification_2_sent", "notification_2_sent_at"},
	{"notification_3_sent", "notification_3_sent_at"},
}

type OrderDatabase struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewOrderDatabase(db *gorm.DB, log *slog.Logger) *OrderDatabase {
	return &OrderDatabase{
		db:  db,
		log: log,
	}
}

func (r *OrderDatabase) GetOrderByID(ctx context.Context, orderID uint) (*order.Order, error) {
	op := "OrderDatabase.GetOrderByID"
	log := r.log.With(slog.String("op", op), slog.Uint64("orderID", uint64(orderID)))

	var orderModel order.Order
	if err := r.db.WithContext(ctx).First(&orderModel, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("order not found by ID")
			return nil, order.ErrOrderNotFound
		}
		log.Error("failed to get order by ID from DB", "error", err)
		return nil, order.ErrOrderInternal
	}

	log.Debug("order found by ID")
	return &orderModel, nil
}

func (r *OrderDatabase) GetOrdersForReminderSweep(ctx context.Context, now time.Time) ([]*order.Order, error) {
	op := "OrderDatabase.GetOrdersForReminderSweep"
	log := r.log.With(slog.String("op", op))

	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	var orders []*order.Order
	err := r.db.WithContext(ctx).
		Where("is_deleted = ? AND status IN ? AND order_date >= ? AND order_date <= ?",
			false, []string{order.StatusPending, order.StatusProcessing}, today, tomorrow).
		Find(&orders).Error
	if err != nil {
		log.Error("failed to fetch orders for reminder sweep", "error", err)
		return nil, order.ErrOrderInternal
	}

	log.Debug("orders fetched for reminder sweep", slog.Int("count", len(orders)))
	return orders, nil
}

// MarkSlotSent - compare-and-swap по флагу слота: UPDATE проходит только
// если флаг еще false. Ноль затронутых строк означает, что флаг уже стоял,
// это успех (идемпотентность). Флаг никогда не сбрасывается обратно.
func (r *OrderDatabase) MarkSlotSent(ctx context.Context, orderID uint, slot int, ts time.Time) error {
	op := "OrderDatabase.MarkSlotSent"
	log := r.log.With(slog.String("op", op), slog.Uint64("orderID", uint64(orderID)), slog.Int("slot", slot))

	if slot < 0 || slot >= order.SlotCount {
		return order.ErrInvalidSlot
	}
	cols := slotColumns[slot]

	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("order_id = ? AND "+cols.flag+" = ?", orderID, false).
		Updates(map[string]interface{}{
			cols.flag:   true,
			cols.sentAt: ts,
		})
	if result.Error != nil {
		log.Error("failed to mark reminder slot sent", "error", result.Error)
		return order.ErrOrderInternal
	}

	if result.RowsAffected == 0 {
		log.Debug("reminder slot was already marked sent")
	} else {
		log.Info("reminder slot marked sent")
	}
	return nil
}
