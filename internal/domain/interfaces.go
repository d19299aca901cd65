package domain

import (
	"context"
	"time"

	"stockpile/internal/models"
)

type Repository interface {
	CreateInventory(ctx context.Context, inv *models.Inventory) error
	GetInventory(ctx context.Context, id string) (*models.Inventory, error)
	ListInventories(ctx context.Context) ([]*models.Inventory, error)
	ListInventoriesByOwner(ctx context.Context, ownerID string) ([]*models.Inventory, error)
	SearchInventories(ctx context.Context, query string) ([]*models.Inventory, error)
	UpdateInventory(ctx context.Context, inv *models.Inventory) error
	DeleteInventory(ctx context.Context, id string) error
	CountInventories(ctx context.Context) (int64, error)
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, inventoryID, id string) (*models.Item, error)
	ListItemsByInventory(ctx context.Context, inventoryID string) ([]*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, inventoryID, id string) error
	CountItemsByInventory(ctx context.Context, inventoryID string) (int64, error)
}

type CredentialRepository interface {
	Resolve(ctx context.Context, token string) (*models.Actor, error)
	Store(ctx context.Context, token string, actor *models.Actor, ttl time.Duration) error
	Revoke(ctx context.Context, token string) error
	CheckRateLimit(ctx context.Context, token string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
