package repository

import (
	"context"
	"sync"
	"time"

	"stockpile/internal/models"
)

type MemoryCredentialRepository struct {
	credentials sync.Map
	rateLimits  sync.Map
	ttl         time.Duration
}

func NewMemoryCredentialRepository(ttl time.Duration) *MemoryCredentialRepository {
	return &MemoryCredentialRepository{
		ttl: ttl,
	}
}

type credentialEntry struct {
	actor     *models.Actor
	expiresAt time.Time
}

func (r *MemoryCredentialRepository) Resolve(ctx context.Context, token string) (*models.Actor, error) {
	val, ok := r.credentials.Load(token)
	if !ok {
		return nil, nil
	}
	entry := val.(*credentialEntry)
	if time.Now().After(entry.expiresAt) {
		r.credentials.Delete(token)
		return nil, nil
	}
	return entry.actor, nil
}

func (r *MemoryCredentialRepository) Store(ctx context.Context, token string, actor *models.Actor, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	r.credentials.Store(token, &credentialEntry{
		actor:     actor,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (r *MemoryCredentialRepository) Revoke(ctx context.Context, token string) error {
	r.credentials.Delete(token)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryCredentialRepository) CheckRateLimit(ctx context.Context, token string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(token)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(token, entry)
	return entry.count <= limit, nil
}
