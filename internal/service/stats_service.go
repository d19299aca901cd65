package service

import (
	"context"

	"stockpile/internal/domain"
	"stockpile/internal/models"

	"github.com/rs/zerolog"
)

type StatsService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewStatsService(repo domain.Repository, logger *zerolog.Logger) *StatsService {
	return &StatsService{
		repo:   repo,
		logger: logger,
	}
}

// Collect recomputes totals from the store on every call. Deletes and
// cascades are reflected immediately, nothing is cached.
func (s *StatsService) Collect(ctx context.Context) (*models.Stats, error) {
	inventories, err := s.repo.ListInventories(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{Inventories: int64(len(inventories))}
	for _, inv := range inventories {
		count, err := s.repo.CountItemsByInventory(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		stats.Items += count
	}

	return stats, nil
}
