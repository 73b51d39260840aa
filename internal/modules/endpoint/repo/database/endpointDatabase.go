package database

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"server/internal/modules/endpoint"
)

type EndpointDatabase struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewEndpointDatabase(db *gorm.DB, log *slog.Logger) *EndpointDatabase {
	return &EndpointDatabase{
		db:  db,
		log: log,
	}
}

// UpsertEndpoint вставляет эндпоинт или, при конфликте по (user_id, address),
// обновляет метаданные существующей записи. Инвариант уникальности пары
// держит БД, а не приложение.
func (r *EndpointDatabase) UpsertEndpoint(ctx context.Context, e *endpoint.DeliveryEndpoint) (*endpoint.DeliveryEndpoint, error) {
	op := "EndpointDatabase.UpsertEndpoint"
	log := r.log.With(slog.String("op", op), slog.Uint64("userID", uint64(e.UserID)), slog.String("kind", e.Kind))

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kind", "p256dh_key", "auth_key", "platform", "updated_at",
		}),
	}).Create(e).Error
	if err != nil {
		log.Error("failed to upsert delivery endpoint in DB", "error", err)
		return nil, endpoint.ErrEndpointInternal
	}

	// После ON CONFLICT DO UPDATE в модели может не оказаться ключа
	// существующей строки, перечитываем по уникальной паре.
	var saved endpoint.DeliveryEndpoint
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND address = ?", e.UserID, e.Address).
		First(&saved).Error
	if err != nil {
		log.Error("failed to reload upserted endpoint", "error", err)
		return nil, endpoint.ErrEndpointInternal
	}

	log.Info("delivery endpoint upserted", slog.Uint64("endpointID", uint64(saved.EndpointID)))
	return &saved, nil
}

func (r *EndpointDatabase) DeleteEndpoint(ctx context.Context, userID uint, endpointID uint) error {
	op := "EndpointDatabase.DeleteEndpoint"
	log := r.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)), slog.Uint64("endpointID", uint64(endpointID)))

	result := r.db.WithContext(ctx).
		Where("endpoint_id = ? AND user_id = ?", endpointID, userID).
		Delete(&endpoint.DeliveryEndpoint{})
	if result.Error != nil {
		log.Error("failed to delete delivery endpoint from DB", "error", result.Error)
		return endpoint.ErrEndpointInternal
	}
	if result.RowsAffected == 0 {
		log.Warn("delivery endpoint not found for deletion")
		return endpoint.ErrEndpointNotFound
	}

	log.Info("delivery endpoint deleted")
	return nil
}

func (r *EndpointDatabase) DeleteAllForUser(ctx context.Context, userID uint) error {
	op := "EndpointDatabase.DeleteAllForUser"
	log := r.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)))

	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&endpoint.DeliveryEndpoint{})
	if result.Error != nil {
		log.Error("failed to delete user delivery endpoints from DB", "error", result.Error)
		return endpoint.ErrEndpointInternal
	}

	log.Info("user delivery endpoints deleted", slog.Int64("count", result.RowsAffected))
	return nil
}

// DeleteByID удаляет эндпоинт без проверки владельца - используется при
// инвалидации по сигналу провайдера, где пользователь не участвует.
func (r *EndpointDatabase) DeleteByID(ctx context.Context, endpointID uint) error {
	op := "EndpointDatabase.DeleteByID"
	log := r.log.With(slog.String("op", op), slog.Uint64("endpointID", uint64(endpointID)))

	result := r.db.WithContext(ctx).
		Where("endpoint_id = ?", endpointID).
		Delete(&endpoint.DeliveryEndpoint{})
	if result.Error != nil {
		log.Error("failed to invalidate delivery endpoint in DB", "error", result.Error)
		return endpoint.ErrEndpointInternal
	}
	if result.RowsAffected == 0 {
		// Эндпоинт уже удален параллельным вызовом, это не ошибка.
		log.Debug("delivery endpoint already gone")
		return nil
	}

	log.Info("delivery endpoint invalidated and removed")
	return nil
}

func (r *EndpointDatabase) GetEndpointByID(ctx context.Context, endpointID uint) (*endpoint.DeliveryEndpoint, error) {
	op := "EndpointDatabase.GetEndpointByID"
	log := r.log.With(slog.String("op", op), slog.Uint64("endpointID", uint64(endpointID)))

	var e endpoint.DeliveryEndpoint
	if err := r.db.WithContext(ctx).First(&e, endpointID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug("delivery endpoint not found by ID")
			return nil, endpoint.ErrEndpointNotFound
		}
		log.Error("failed to get delivery endpoint by ID from DB", "error", err)
		return nil, endpoint.ErrEndpointInternal
	}
	return &e, nil
}

func (r *EndpointDatabase) GetEndpointsByUserID(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error) {
	op := "EndpointDatabase.GetEndpointsByUserID"
	log := r.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)))

	var endpoints []endpoint.DeliveryEndpoint
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("endpoint_id").
		Find(&endpoints).Error
	if err != nil {
		log.Error("failed to get delivery endpoints from DB", "error", err)
		return nil, endpoint.ErrEndpointInternal
	}

	log.Debug("delivery endpoints fetched", slog.Int("count", len(endpoints)))
	return endpoints, nil
}
