package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"server/internal/init/cache"
	"server/internal/modules/endpoint"
)

// EndpointCache кэширует списки эндпоинтов пользователя: диспетчер
// читает список на каждый цикл обработки заказа, БД дергать каждый раз
// незачем. Любая мутация реестра сбрасывает ключ.
type EndpointCache struct {
	ch  *cache.Cache
	log *slog.Logger
	ttl time.Duration
}

func NewEndpointCache(ch *cache.Cache, log *slog.Logger, ttl time.Duration) *EndpointCache {
	return &EndpointCache{
		ch:  ch,
		log: log,
		ttl: ttl,
	}
}

func userEndpointsKey(userID uint) string {
	return fmt.Sprintf("endpoints:user:%d", userID)
}

func (c *EndpointCache) GetEndpoints(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error) {
	op := "EndpointCache.GetEndpoints"
	log := c.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)))

	data, err := c.ch.Client.Get(ctx, userEndpointsKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn("failed to read endpoints from cache", "error", err)
		}
		return nil, err
	}

	var endpoints []endpoint.DeliveryEndpoint
	if err := json.Unmarshal(data, &endpoints); err != nil {
		log.Warn("failed to unmarshal cached endpoints, dropping key", "error", err)
		c.ch.Client.Del(ctx, userEndpointsKey(userID))
		return nil, err
	}

	log.Debug("endpoints cache hit", slog.Int("count", len(endpoints)))
	return endpoints, nil
}

func (c *EndpointCache) SaveEndpoints(ctx context.Context, userID uint, endpoints []endpoint.DeliveryEndpoint) error {
	op := "EndpointCache.SaveEndpoints"
	log := c.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)))

	data, err := json.Marshal(endpoints)
	if err != nil {
		log.Warn("failed to marshal endpoints for cache", "error", err)
		return err
	}

	if err := c.ch.Client.Set(ctx, userEndpointsKey(userID), data, c.ttl).Err(); err != nil {
		log.Warn("failed to save endpoints to cache", "error", err)
		return err
	}
	return nil
}

func (c *EndpointCache) InvalidateUser(ctx context.Context, userID uint) error {
	return c.ch.Client.Del(ctx, userEndpointsKey(userID)).Err()
}
