package repo

import (
	"context"
	"time"

	"server/internal/modules/notification"
)

type AuditDb interface {
	AppendAuditEntry(ctx context.Context, entry *notification.AuditEntry) error
	GetAuditEntries(ctx context.Context, userID uint, filter notification.AuditFilter) ([]notification.AuditEntry, error)
	GetAuditEntriesBefore(ctx context.Context, cutoff time.Time, limit int) ([]notification.AuditEntry, error)
	DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repo struct {
	db AuditDb
}

func NewRepo(db AuditDb) notification.Repo {
	return &repo{db: db}
}

func (r *repo) AppendAuditEntry(ctx context.Context, entry *notification.AuditEntry) error {
	return r.db.AppendAuditEntry(ctx, entry)
}

func (r *repo) GetAuditEntries(ctx context.Context, userID uint, filter notification.AuditFilter) ([]notification.AuditEntry, error) {
	return r.db.GetAuditEntries(ctx, userID, filter)
}

func (r *repo) GetAuditEntriesBefore(ctx context.Context, cutoff time.Time, limit int) ([]notification.AuditEntry, error) {
	return r.db.GetAuditEntriesBefore(ctx, cutoff, limit)
}

func (r *repo) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.db.DeleteAuditEntriesBefore(ctx, cutoff)
}
