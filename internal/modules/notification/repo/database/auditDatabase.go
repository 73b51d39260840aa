package database

import (
	"context"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"server/internal/modules/notification"
)

const defaultAuditLimit = 100

type AuditDatabase struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewAuditDatabase(db *gorm.DB, log *slog.Logger) *AuditDatabase {
	return &AuditDatabase{
		db:  db,
		log: log,
	}
}

// AppendAuditEntry добавляет запись в журнал. Записи неизменяемы:
// update/delete путей здесь нет, только вставка и выборка.
func (r *AuditDatabase) AppendAuditEntry(ctx context.Context, entry *notification.AuditEntry) error {
	op := "AuditDatabase.AppendAuditEntry"
	log := r.log.With(slog.String("op", op), slog.Uint64("userID", uint64(entry.UserID)))

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		log.Error("failed to append audit entry", "error", err)
		return notification.ErrNotificationInternal
	}
	return nil
}

func (r *AuditDatabase) GetAuditEntries(ctx context.Context, userID uint, filter notification.AuditFilter) ([]notification.AuditEntry, error) {
	op := "AuditDatabase.GetAuditEntries"
	log := r.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)))

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	var entries []notification.AuditEntry
	if err := query.Order("created_at DESC, audit_id DESC").Limit(limit).Find(&entries).Error; err != nil {
		log.Error("failed to get audit entries", "error", err)
		return nil, notification.ErrNotificationInternal
	}
	return entries, nil
}

// GetAuditEntriesBefore выбирает старые записи для выгрузки в архив.
func (r *AuditDatabase) GetAuditEntriesBefore(ctx context.Context, cutoff time.Time, limit int) ([]notification.AuditEntry, error) {
	op := "AuditDatabase.GetAuditEntriesBefore"
	log := r.log.With(slog.String("op", op))

	var entries []notification.AuditEntry
	query := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Order("audit_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		log.Error("failed to get audit entries for archival", "error", err)
		return nil, notification.ErrNotificationInternal
	}
	return entries, nil
}

// DeleteAuditEntriesBefore удаляет заархивированный хвост журнала.
// Вызывается только архиватором после успешной выгрузки.
func (r *AuditDatabase) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	op := "AuditDatabase.DeleteAuditEntriesBefore"
	log := r.log.With(slog.String("op", op))

	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&notification.AuditEntry{})
	if result.Error != nil {
		log.Error("failed to delete archived audit entries", "error", result.Error)
		return 0, notification.ErrNotificationInternal
	}
	return result.RowsAffected, nil
}

