package repo

import (
	"context"
	"time"

	"server/internal/modules/order"
)

type OrderDb interface {
	GetOrderByID(ctx context.Context, orderID uint) (*order.Order, error)
	GetOrdersForReminderSweep(ctx context.Context, now time.Time) ([]*order.Order, error)
	MarkSlotSent(ctx context.Context, orderID uint, slot int, ts time.Time) error
}

type repo struct {
	db OrderDb
}

func NewRepo(db OrderDb) order.Repo {
	return &repo{db: db}
}

func (r *repo) GetOrderByID(ctx context.Context, orderID uint) (*order.Order, error) {
	return r.db.GetOrderByID(ctx, orderID)
}

func (r *repo) GetOrdersForReminderSweep(ctx context.Context, now time.Time) ([]*order.Order, error) {
	return r.db.GetOrdersForReminderSweep(ctx, now)
}

func (r *repo) MarkSlotSent(ctx context.Context, orderID uint, slot int, ts time.Time) error {
	return r.db.MarkSlotSent(ctx, orderID, slot, ts)
}
