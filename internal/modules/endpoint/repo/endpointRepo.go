package repo

import (
	"context"
	"log/slog"

	"server/internal/modules/endpoint"
)

type EndpointDb interface {
	UpsertEndpoint(ctx context.Context, e *endpoint.DeliveryEndpoint) (*endpoint.DeliveryEndpoint, error)
	DeleteEndpoint(ctx context.Context, userID uint, endpointID uint) error
	DeleteAllForUser(ctx context.Context, userID uint) error
	DeleteByID(ctx context.Context, endpointID uint) error
	GetEndpointByID(ctx context.Context, endpointID uint) (*endpoint.DeliveryEndpoint, error)
	GetEndpointsByUserID(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error)
}

type EndpointCache interface {
	GetEndpoints(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error)
	SaveEndpoints(ctx context.Context, userID uint, endpoints []endpoint.DeliveryEndpoint) error
	InvalidateUser(ctx context.Context, userID uint) error
}

type repo struct {
	db  EndpointDb
	ch  EndpointCache
	log *slog.Logger
}

func NewRepo(db EndpointDb, ch EndpointCache, log *slog.Logger) endpoint.Repo {
	return &repo{
		db:  db,
		ch:  ch,
		log: log,
	}
}

func (r *repo) UpsertEndpoint(ctx context.Context, e *endpoint.DeliveryEndpoint) (*endpoint.DeliveryEndpoint, error) {
	saved, err := r.db.UpsertEndpoint(ctx, e)
	if err != nil {
		return nil, err
	}
	if cerr := r.ch.InvalidateUser(ctx, e.UserID); cerr != nil {
		r.log.Warn("failed to invalidate endpoint cache after upsert", "userID", e.UserID, "error", cerr)
	}
	return saved, nil
}

func (r *repo) DeleteEndpoint(ctx context.Context, userID uint, endpointID uint) error {
	if err := r.db.DeleteEndpoint(ctx, userID, endpointID); err != nil {
		return err
	}
	if cerr := r.ch.InvalidateUser(ctx, userID); cerr != nil {
		r.log.Warn("failed to invalidate endpoint cache after delete", "userID", userID, "error", cerr)
	}
	return nil
}

func (r *repo) DeleteAllForUser(ctx context.Context, userID uint) error {
	if err := r.db.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	if cerr := r.ch.InvalidateUser(ctx, userID); cerr != nil {
		r.log.Warn("failed to invalidate endpoint cache after delete all", "userID", userID, "error", cerr)
	}
	return nil
}

func (r *repo) DeleteByID(ctx context.Context, endpointID uint) error {
	// Сначала узнаем владельца, чтобы после удаления сбросить его ключ
	// кэша: инвалидированный эндпоинт обязан исчезнуть из ListForUser
	// немедленно, а не по истечении TTL.
	e, err := r.db.GetEndpointByID(ctx, endpointID)
	if err != nil {
		if err == endpoint.ErrEndpointNotFound {
			return nil
		}
		return err
	}
	if err := r.db.DeleteByID(ctx, endpointID); err != nil {
		return err
	}
	if cerr := r.ch.InvalidateUser(ctx, e.UserID); cerr != nil {
		r.log.Warn("failed to invalidate endpoint cache after prune", "userID", e.UserID, "error", cerr)
	}
	return nil
}

func (r *repo) GetEndpointsByUserID(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error) {
	if cached, err := r.ch.GetEndpoints(ctx, userID); err == nil {
		return cached, nil
	}

	endpoints, err := r.db.GetEndpointsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cerr := r.ch.SaveEndpoints(ctx, userID, endpoints); cerr != nil {
		r.log.Warn("failed to cache endpoints", "userID", userID, "error", cerr)
	}
	return endpoints, nil
}
