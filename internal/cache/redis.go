package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fishbot-economy-api/internal/logging"
)

var deleteIfUnchangedScript = redis.NewScript(`
	if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
		redis.call("HDEL", KEYS[1], ARGV[1])
		redis.call("SREM", KEYS[2], ARGV[1])
		return 1
	else
		return 0
	end
`)

// RedisBuffer keeps pending snapshots in a Redis hash plus a pending set.
type RedisBuffer struct {
	client    *redis.Client
	keyPrefix string
	log       *logrus.Entry
}

// RedisBufferConfig holds configuration for Redis buffer.
type RedisBufferConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisBuffer connects to Redis and verifies the connection.
func NewRedisBuffer(cfg RedisBufferConfig) (*RedisBuffer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	b := NewRedisBufferWithClient(client, cfg.KeyPrefix)
	b.log.WithFields(logrus.Fields{"db": cfg.DB, "prefix": b.keyPrefix}).Info("connected")
	return b, nil
}

// NewRedisBufferWithClient wraps an existing client.
func NewRedisBufferWithClient(client *redis.Client, keyPrefix string) *RedisBuffer {
	if keyPrefix == "" {
		keyPrefix = "fishbot:economy"
	}
	return &RedisBuffer{
		client:    client,
		keyPrefix: keyPrefix,
		log:       logging.Component("redis-buffer"),
	}
}

func (b *RedisBuffer) bufferKey() string {
	return b.keyPrefix + ":buffer"
}

func (b *RedisBuffer) pendingKey() string {
	return b.keyPrefix + ":pending"
}

// Put buffers a snapshot payload in Redis.
func (b *RedisBuffer) Put(ctx context.Context, resource string, data []byte) error {
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, b.bufferKey(), resource, data)
	pipe.SAdd(ctx, b.pendingKey(), resource)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to buffer %s snapshot: %w", resource, err)
	}
	return nil
}

// Get retrieves a buffered payload from Redis.
func (b *RedisBuffer) Get(ctx context.Context, resource string) ([]byte, error) {
	data, err := b.client.HGet(ctx, b.bufferKey(), resource).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Pending lists resources waiting for a flush.
func (b *RedisBuffer) Pending(ctx context.Context) ([]string, error) {
	return b.client.SMembers(ctx, b.pendingKey()).Result()
}

// Ack clears resource if nobody buffered a newer payload meanwhile.
func (b *RedisBuffer) Ack(ctx context.Context, resource string, data []byte) (bool, error) {
	n, err := deleteIfUnchangedScript.Run(ctx, b.client,
		[]string{b.bufferKey(), b.pendingKey()}, resource, string(data)).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Count returns the number of pending items.
func (b *RedisBuffer) Count(ctx context.Context) (int64, error) {
	return b.client.SCard(ctx, b.pendingKey()).Result()
}

// Close closes the Redis client.
func (b *RedisBuffer) Close() error {
	return b.client.Close()
}

var _ Buffer = (*RedisBuffer)(nil)
