package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockpile/internal/config"
	"stockpile/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisCredentialRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisCredentialRepository(client *redis.Client, ttl time.Duration) *RedisCredentialRepository {
	return &RedisCredentialRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisCredentialRepository) Resolve(ctx context.Context, token string) (*models.Actor, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	key := "credential:" + token
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential from redis: %w", err)
	}

	var actor models.Actor
	if err := json.Unmarshal([]byte(val), &actor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &actor, nil
}

func (r *RedisCredentialRepository) Store(ctx context.Context, token string, actor *models.Actor, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	key := "credential:" + token
	data, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set credential in redis: %w", err)
	}

	return nil
}

func (r *RedisCredentialRepository) Revoke(ctx context.Context, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := "credential:" + token
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete credential from redis: %w", err)
	}
	return nil
}

func (r *RedisCredentialRepository) CheckRateLimit(ctx context.Context, token string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := "rate_limit:" + token
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
