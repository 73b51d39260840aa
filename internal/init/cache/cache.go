package cache

import (
	"context"
	"fmt"
	"github.com/go-redis/redis/v8"
	"os"
	"server/config"
	"time"
)

type Cache struct {
	Client             *redis.Client
	EndpointExpiration time.Duration
}

func NewCache(cfg config.CacheConfig) (*Cache, error) {
	redisPassword := os.Getenv("REDIS_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		DB:       cfg.Db,
		Password: redisPassword,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		errorMessage := fmt.Sprintf("failed to connect to Redis at %s", cfg.Address)
		if redisPassword != "" {
			errorMessage += " (with password)"
		}
		return nil, fmt.Errorf("%s: %v", errorMessage, err)
	}
	fmt.Println("Successfully connected to Redis!")

	return &Cache{Client: client, EndpointExpiration: cfg.DefaultEndpointCacheTtl}, nil
}
