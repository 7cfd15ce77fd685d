package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"gsrd/internal/errors"
)

// RedisCache implements Cache on a Redis backend.
type RedisCache struct {
	client *redis.Client
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.WrapError(err, errors.ErrCodeCacheConnection, "failed to connect to redis").
			WithContext("addr", cfg.Addr)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := rc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, errors.NewAppError(errors.ErrCodeCacheMiss, "key not found", nil).
			WithContext("key", key)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeCacheOperation, "redis get failed").
			WithContext("key", key)
	}
	return value, nil
}

// Set stores a value in Redis with a TTL.
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if err := rc.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.WrapError(err, errors.ErrCodeCacheOperation, "redis set failed").
			WithContext("key", key)
	}
	return nil
}

// Delete removes a key from Redis.
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, key).Err(); err != nil {
		return errors.WrapError(err, errors.ErrCodeCacheOperation, "redis delete failed").
			WithContext("key", key)
	}
	return nil
}

// Exists reports whether a key is present in Redis.
func (rc *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := rc.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.WrapError(err, errors.ErrCodeCacheOperation, "redis exists failed").
			WithContext("key", key)
	}
	return count > 0, nil
}

// Close closes the Redis client.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
