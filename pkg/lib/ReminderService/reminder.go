package ReminderService

import (
	"context"
	"encoding/json"
	"fmt"
	"gorm.io/gorm"
	"log/slog"
	"server/config"
	"server/internal/init/s3"
	"server/internal/modules/endpoint"
	"server/internal/modules/notification"
	"time"
)

// ReminderService - периодические задачи цикла напоминаний: обход
// заказов, чистка брошенных эндпоинтов и архивация журнала аудита.
type ReminderService struct {
	db    *gorm.DB
	uc    notification.UseCase
	audit notification.Repo
	s3    *s3.S3Storage
	cfg   config.ReminderConfig
	log   *slog.Logger
}

func NewReminderService(
	db *gorm.DB,
	uc notification.UseCase,
	audit notification.Repo,
	s3Storage *s3.S3Storage,
	cfg config.ReminderConfig,
	log *slog.Logger,
) *ReminderService {
	return &ReminderService{
		db:    db,
		uc:    uc,
		audit: audit,
		s3:    s3Storage,
		cfg:   cfg,
		log:   log,
	}
}

// RunReminderSweep запускает обход заказов с датой сегодня/завтра.
func (s *ReminderService) RunReminderSweep() {
	op := "ReminderService.RunReminderSweep"
	log := s.log.With(slog.String("op", op))
	log.Info("Starting reminder sweep")

	if err := s.uc.SweepDueOrders(context.Background()); err != nil {
		log.Error("reminder sweep failed", "error", err)
	}
}

// PurgeStaleEndpoints удаляет эндпоинты, которые давно не перерегистрировались.
// Живой клиент обновляет подписку при каждом запуске, так что запись,
// не тронутая дольше порога, принадлежит исчезнувшему устройству.
func (s *ReminderService) PurgeStaleEndpoints() {
	op := "ReminderService.PurgeStaleEndpoints"
	log := s.log.With(slog.String("op", op))

	threshold := time.Now().Add(-s.cfg.StaleEndpointAge)
	result := s.db.Where("updated_at <= ?", threshold).Delete(&endpoint.DeliveryEndpoint{})
	if result.Error != nil {
		log.Error("error deleting stale endpoints", slog.String("error", result.Error.Error()))
	} else if result.RowsAffected > 0 {
		log.Info("deleted stale endpoints", slog.Int64("count", result.RowsAffected))
	}
}

// ArchiveAuditLog выгружает хвост журнала старше срока хранения в S3
// одним JSONL-объектом и удаляет выгруженные записи. Удаление идет
// строго после успешной выгрузки.
func (s *ReminderService) ArchiveAuditLog() {
	op := "ReminderService.ArchiveAuditLog"
	log := s.log.With(slog.String("op", op))

	ctx := context.Background()
	cutoff := time.Now().Add(-s.cfg.AuditRetention)

	entries, err := s.audit.GetAuditEntriesBefore(ctx, cutoff, 0)
	if err != nil {
		log.Error("failed to load audit entries for archival", "error", err)
		return
	}
	if len(entries) == 0 {
		log.Info("no audit entries to archive")
		return
	}

	var buf []byte
	for i := range entries {
		line, err := json.Marshal(&entries[i])
		if err != nil {
			log.Error("failed to marshal audit entry", slog.Uint64("auditID", uint64(entries[i].AuditID)), "error", err)
			return
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("audit/%d/%02d/audit-%s.jsonl", now.Year(), now.Month(), now.Format("20060102-150405"))
	if err := s.s3.UploadObject(ctx, key, buf, "application/x-ndjson"); err != nil {
		log.Error("failed to upload audit archive", slog.String("key", key), "error", err)
		return
	}

	deleted, err := s.audit.DeleteAuditEntriesBefore(ctx, cutoff)
	if err != nil {
		log.Error("failed to delete archived audit entries", "error", err)
		return
	}

	log.Info("audit log archived",
		slog.String("key", key),
		slog.Int("archived", len(entries)),
		slog.Int64("deleted", deleted))
}
