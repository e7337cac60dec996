package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// eventsCacheKey holds the latest visible event list as one JSON blob, read
// by API frontends that should not touch Postgres on every request.
const eventsCacheKey = "events:current"

type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisClient{client: client, ttl: ttl}, nil
}

// CacheEvents stores the current visible event list.
func (r *RedisClient) CacheEvents(ctx context.Context, events []models.CanonicalEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := r.client.Set(ctx, eventsCacheKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache events: %w", err)
	}
	return nil
}

// CachedEvents returns the cached event list, or nil when the key is absent
// or expired.
func (r *RedisClient) CachedEvents(ctx context.Context) ([]models.CanonicalEvent, error) {
	data, err := r.client.Get(ctx, eventsCacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached events: %w", err)
	}
	var events []models.CanonicalEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached events: %w", err)
	}
	return events, nil
}

// Client exposes the underlying connection for pub/sub publishers.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// Close closes the connection to Redis
func (r *RedisClient) Close() error {
	return r.client.Close()
}
