package repository

import (
	"context"
	"sync/atomic"
	"time"

	"stockpile/internal/domain"
	"stockpile/internal/models"

	"github.com/rs/zerolog"
)

type FailoverCredentialRepository struct {
	primary   domain.CredentialRepository
	fallback  domain.CredentialRepository
	logger    *zerolog.Logger
	isDown atomic.Bool
	// lastCheck хранит UnixNano последней неудачной попытки primary;
	// пишется из конкурентных запросов, поэтому атомарно.
	lastCheck atomic.Int64
}

func NewFailoverCredentialRepository(primary, fallback domain.CredentialRepository, logger *zerolog.Logger) *FailoverCredentialRepository {
	return &FailoverCredentialRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCredentialRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary credential repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverCredentialRepository) Resolve(ctx context.Context, token string) (*models.Actor, error) {
	if !r.isDown.Load() {
		actor, err := r.primary.Resolve(ctx, token)
		if err == nil {
			return actor, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute {
		actor, err := r.primary.Resolve(ctx, token)
		if err == nil {
			r.isDown.Store(false)
			return actor, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Resolve(ctx, token)
}

func (r *FailoverCredentialRepository) Store(ctx context.Context, token string, actor *models.Actor, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.Store(ctx, token, actor, ttl)
		if err == nil {
			// Дублируем в fallback, чтобы при падении primary токены продолжали работать
			_ = r.fallback.Store(ctx, token, actor, ttl)
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Store(ctx, token, actor, ttl)
}

func (r *FailoverCredentialRepository) Revoke(ctx context.Context, token string) error {
	if !r.isDown.Load() {
		err := r.primary.Revoke(ctx, token)
		if err == nil {
			_ = r.fallback.Revoke(ctx, token)
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Revoke(ctx, token)
}

func (r *FailoverCredentialRepository) CheckRateLimit(ctx context.Context, token string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, token, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, token, limit, window)
}
