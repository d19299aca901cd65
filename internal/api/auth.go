package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"stockpile/internal/config"
	"stockpile/internal/domain"
	"stockpile/internal/models"

	"github.com/rs/zerolog"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ActorFromContext returns the authenticated actor, or a zero Actor when
// the request carried no credentials.
func ActorFromContext(ctx context.Context) models.Actor {
	if actor, ok := ctx.Value(actorContextKey).(models.Actor); ok {
		return actor
	}
	return models.Actor{}
}

// HTTPAuth resolves bearer tokens into actors and enforces per-token
// rate limits.
type HTTPAuth struct {
	cfg     config.APIConfig
	creds   domain.CredentialRepository
	limiter *rateLimiter
	logger  *zerolog.Logger
}

func NewHTTPAuth(cfg config.APIConfig, creds domain.CredentialRepository, logger *zerolog.Logger) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg,
		creds:   creds,
		limiter: newRateLimiter(&cfg),
		logger:  logger,
	}
}

// Wrap authenticates the request and stores the actor in the context.
// Requests without a valid token are rejected with 401.
func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		actor, err := a.creds.Resolve(r.Context(), token)
		if err != nil {
			a.logger.Error().Err(err).Msg("credential lookup failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if actor == nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		// Локальный лимитер сглаживает всплески, окно в хранилище
		// общее для всех инстансов.
		if !a.limiter.allow(token) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		allowed, err := a.creds.CheckRateLimit(r.Context(), token,
			models.RateLimitRequests, time.Duration(models.RateLimitWindow)*time.Second)
		if err != nil {
			a.logger.Error().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		ctx := context.WithValue(r.Context(), actorContextKey, *actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
