package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a Redis-backed implementation of the Memory interface.
// Keys are prefixed with a namespace to keep cache entries separate from
// persisted plan records sharing the same Redis instance.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    Logger
}

// RedisStoreOptions configures the Redis store
type RedisStoreOptions struct {
	RedisURL  string
	Namespace string // Key namespace, e.g. "planweaver:cache"
	Logger    Logger
}

// NewRedisStore creates a Redis-backed Memory and verifies connectivity
func NewRedisStore(opts RedisStoreOptions) (*RedisStore, error) {
	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}
	if opts.Namespace == "" {
		opts.Namespace = "planweaver:cache"
	}
	if opts.Logger == nil {
		opts.Logger = &NoOpLogger{}
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		opts.Logger.Error("Redis connection failed", map[string]interface{}{
			"operation": "redis_connect",
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", ErrConnectionFailed)
	}

	opts.Logger.Info("Redis store connected", map[string]interface{}{
		"operation": "redis_connect",
		"namespace": opts.Namespace,
	})

	return &RedisStore{
		client:    client,
		namespace: opts.Namespace,
		logger:    opts.Logger,
	}, nil
}

func (r *RedisStore) key(key string) string {
	return r.namespace + ":" + key
}

// Get retrieves a value. A missing key returns "" without error
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// Set stores a value with optional TTL (0 means no expiry)
func (r *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes a key
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Exists checks whether a key exists
func (r *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

// Close releases the underlying connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}
