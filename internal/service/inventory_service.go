package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockpile/internal/domain"
	"stockpile/internal/events"
	"stockpile/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type InventoryService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewInventoryService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *InventoryService {
	return &InventoryService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Create регистрирует новый инвентарь от имени актора.
func (s *InventoryService) Create(ctx context.Context, actor models.Actor, inv *models.Inventory) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if strings.TrimSpace(inv.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}

	// Идентификатор назначаем сами: переданный клиентом _id игнорируется.
	inv.ID = uuid.NewString()
	inv.OwnerID = actor.UserID
	inv.Schema = inv.Schema.Normalize()

	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if err := s.repo.CreateInventory(ctx, inv); err != nil {
		return err
	}

	s.publishInventoryEvent(events.EventInventoryCreated, inv, actor)
	return nil
}

func (s *InventoryService) Get(ctx context.Context, id string) (*models.Inventory, error) {
	return s.repo.GetInventory(ctx, id)
}

func (s *InventoryService) List(ctx context.Context) ([]*models.Inventory, error) {
	return s.repo.ListInventories(ctx)
}

// ListOwnedBy returns inventories belonging to the actor.
func (s *InventoryService) ListOwnedBy(ctx context.Context, actor models.Actor) ([]*models.Inventory, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	return s.repo.ListInventoriesByOwner(ctx, actor.UserID)
}

// Search matches inventories by title or category substring. Requires an
// authenticated actor; a blank query short-circuits to an empty result.
func (s *InventoryService) Search(ctx context.Context, actor models.Actor, query string) ([]*models.Inventory, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Inventory{}, nil
	}

	return s.repo.SearchInventories(ctx, query)
}

// InventoryPatch carries the mutable inventory fields for Update. A nil
// Schema means the request did not touch the custom fields: the dashboard
// edits title/description/category without sending the schema at all.
type InventoryPatch struct {
	Title       string
	Description string
	Category    string
	Schema      *models.FieldSchema
}

// Update replaces the mutable fields of an inventory. When the patch carries
// a schema, it may only grow: every existing field must survive in its
// bucket position.
func (s *InventoryService) Update(ctx context.Context, actor models.Actor, id string, patch InventoryPatch) (*models.Inventory, error) {
	existing, err := s.repo.GetInventory(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanMutate(actor, existing) {
		if !actor.Authenticated() {
			return nil, ErrUnauthorized
		}
		return nil, ErrForbidden
	}

	if strings.TrimSpace(patch.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	if patch.Schema != nil {
		schema := patch.Schema.Normalize()
		if !schema.Extends(&existing.Schema) {
			return nil, fmt.Errorf("%w: custom fields can only be appended, not removed or reordered", ErrValidation)
		}
		existing.Schema = schema
	}

	existing.Title = patch.Title
	existing.Description = patch.Description
	existing.Category = patch.Category
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateInventory(ctx, existing); err != nil {
		return nil, err
	}

	s.publishInventoryEvent(events.EventInventoryUpdated, existing, actor)
	return existing, nil
}

// Delete removes an inventory together with its items.
func (s *InventoryService) Delete(ctx context.Context, actor models.Actor, id string) error {
	existing, err := s.repo.GetInventory(ctx, id)
	if err != nil {
		return err
	}

	if !CanMutate(actor, existing) {
		if !actor.Authenticated() {
			return ErrUnauthorized
		}
		return ErrForbidden
	}

	if err := s.repo.DeleteInventory(ctx, id); err != nil {
		return err
	}

	s.publishInventoryEvent(events.EventInventoryDeleted, existing, actor)
	return nil
}

func (s *InventoryService) publishInventoryEvent(eventType string, inv *models.Inventory, actor models.Actor) {
	if s.eventBus == nil {
		return
	}

	payload := events.InventoryEventPayload{
		InventoryID: inv.ID,
		OwnerID:     inv.OwnerID,
		Title:       inv.Title,
		ActorID:     actor.UserID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("inventory_id", inv.ID).Msg("publish event error")
	}
}
