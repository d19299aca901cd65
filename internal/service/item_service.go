package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockpile/internal/database"
	"stockpile/internal/domain"
	"stockpile/internal/events"
	"stockpile/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ItemService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewItemService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Create adds an item to an inventory. Any authenticated actor may do this,
// not just the inventory owner.
func (s *ItemService) Create(ctx context.Context, actor models.Actor, item *models.Item) error {
	if !CanCreateItem(actor) {
		return ErrUnauthorized
	}

	inv, err := s.repo.GetInventory(ctx, item.InventoryID)
	if err != nil {
		return err
	}

	if err := s.validateItem(item, inv); err != nil {
		return err
	}

	// Идентификатор назначаем сами: переданный клиентом _id игнорируется.
	item.ID = uuid.NewString()

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repo.CreateItem(ctx, item); err != nil {
		if errors.Is(err, database.ErrDuplicateItemID) {
			return fmt.Errorf("%w: item id %q already exists in this inventory", ErrValidation, item.ItemID)
		}
		return err
	}

	s.publishItemEvent(events.EventItemCreated, item, actor)
	return nil
}

func (s *ItemService) Get(ctx context.Context, inventoryID, id string) (*models.Item, error) {
	return s.repo.GetItem(ctx, inventoryID, id)
}

// ListByInventory returns the inventory's items, newest first. An unknown
// inventory id yields an empty list rather than an error.
func (s *ItemService) ListByInventory(ctx context.Context, inventoryID string) ([]*models.Item, error) {
	return s.repo.ListItemsByInventory(ctx, inventoryID)
}

// Update replaces the mutable fields of an item. Owner-or-admin only.
func (s *ItemService) Update(ctx context.Context, actor models.Actor, item *models.Item) (*models.Item, error) {
	inv, err := s.repo.GetInventory(ctx, item.InventoryID)
	if err != nil {
		return nil, err
	}

	if !CanMutate(actor, inv) {
		if !actor.Authenticated() {
			return nil, ErrUnauthorized
		}
		return nil, ErrForbidden
	}

	existing, err := s.repo.GetItem(ctx, item.InventoryID, item.ID)
	if err != nil {
		return nil, err
	}

	if err := s.validateItem(item, inv); err != nil {
		return nil, err
	}

	existing.ItemID = item.ItemID
	existing.Name = item.Name
	existing.Quantity = item.Quantity
	existing.Values = item.Values
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateItem(ctx, existing); err != nil {
		if errors.Is(err, database.ErrDuplicateItemID) {
			return nil, fmt.Errorf("%w: item id %q already exists in this inventory", ErrValidation, item.ItemID)
		}
		return nil, err
	}

	s.publishItemEvent(events.EventItemUpdated, existing, actor)
	return existing, nil
}

// Delete removes an item. Owner-or-admin only.
func (s *ItemService) Delete(ctx context.Context, actor models.Actor, inventoryID, id string) error {
	inv, err := s.repo.GetInventory(ctx, inventoryID)
	if err != nil {
		return err
	}

	if !CanMutate(actor, inv) {
		if !actor.Authenticated() {
			return ErrUnauthorized
		}
		return ErrForbidden
	}

	existing, err := s.repo.GetItem(ctx, inventoryID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteItem(ctx, inventoryID, id); err != nil {
		return err
	}

	s.publishItemEvent(events.EventItemDeleted, existing, actor)
	return nil
}

// validateItem checks the basic fields and conforms custom values to the
// inventory's field schema.
func (s *ItemService) validateItem(item *models.Item, inv *models.Inventory) error {
	if strings.TrimSpace(item.ItemID) == "" {
		return fmt.Errorf("%w: item id is required", ErrValidation)
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	// Количество не ограничиваем: положительность — правило UI, хранилище
	// принимает любое int64 значение.

	values, err := inv.Schema.NormalizeValues(item.Values)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	item.Values = values

	return nil
}

func (s *ItemService) publishItemEvent(eventType string, item *models.Item, actor models.Actor) {
	if s.eventBus == nil {
		return
	}

	payload := events.ItemEventPayload{
		InventoryID: item.InventoryID,
		ItemDBID:    item.ID,
		ItemID:      item.ItemID,
		Name:        item.Name,
		ActorID:     actor.UserID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("item_id", item.ID).Msg("publish event error")
	}
}
