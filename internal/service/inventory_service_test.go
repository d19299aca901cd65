package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"stockpile/internal/database"
	"stockpile/internal/events"
	"stockpile/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateInventory(ctx context.Context, inv *models.Inventory) error {
	return m.Called(ctx, inv).Error(0)
}
func (m *mockRepo) GetInventory(ctx context.Context, id string) (*models.Inventory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inventory), args.Error(1)
}
func (m *mockRepo) ListInventories(ctx context.Context) ([]*models.Inventory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Inventory), args.Error(1)
}
func (m *mockRepo) ListInventoriesByOwner(ctx context.Context, ownerID string) ([]*models.Inventory, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Inventory), args.Error(1)
}
func (m *mockRepo) SearchInventories(ctx context.Context, query string) ([]*models.Inventory, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Inventory), args.Error(1)
}
func (m *mockRepo) UpdateInventory(ctx context.Context, inv *models.Inventory) error {
	return m.Called(ctx, inv).Error(0)
}
func (m *mockRepo) DeleteInventory(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRepo) CountInventories(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockRepo) CreateItem(ctx context.Context, item *models.Item) error {
	return m.Called(ctx, item).Error(0)
}
func (m *mockRepo) GetItem(ctx context.Context, inventoryID, id string) (*models.Item, error) {
	args := m.Called(ctx, inventoryID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}
func (m *mockRepo) ListItemsByInventory(ctx context.Context, inventoryID string) ([]*models.Item, error) {
	args := m.Called(ctx, inventoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Item), args.Error(1)
}
func (m *mockRepo) UpdateItem(ctx context.Context, item *models.Item) error {
	return m.Called(ctx, item).Error(0)
}
func (m *mockRepo) DeleteItem(ctx context.Context, inventoryID, id string) error {
	return m.Called(ctx, inventoryID, id).Error(0)
}
func (m *mockRepo) CountItemsByInventory(ctx context.Context, inventoryID string) (int64, error) {
	args := m.Called(ctx, inventoryID)
	return args.Get(0).(int64), args.Error(1)
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

var (
	owner    = models.Actor{UserID: "owner-1", Role: models.RoleUser}
	stranger = models.Actor{UserID: "other-1", Role: models.RoleUser}
	admin    = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	nobody   = models.Actor{}
)

func ownedInventory() *models.Inventory {
	return &models.Inventory{
		ID:      "inv-1",
		OwnerID: owner.UserID,
		Title:   "Tools",
	}
}

func TestInventoryServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		bus := events.NewEventBus()
		var published []string
		bus.Subscribe(events.EventInventoryCreated, func(e *events.Event) error {
			published = append(published, e.Type)
			return nil
		})
		svc := NewInventoryService(repo, bus, testLogger())

		repo.On("CreateInventory", ctx, mock.AnythingOfType("*models.Inventory")).Return(nil).Once()

		inv := &models.Inventory{Title: "Garage"}
		err := svc.Create(ctx, owner, inv)
		require.NoError(t, err)
		assert.NotEmpty(t, inv.ID)
		assert.Equal(t, owner.UserID, inv.OwnerID)
		assert.False(t, inv.CreatedAt.IsZero())
		assert.Equal(t, []string{events.EventInventoryCreated}, published)
		repo.AssertExpectations(t)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		svc := NewInventoryService(new(mockRepo), nil, testLogger())
		err := svc.Create(ctx, nobody, &models.Inventory{Title: "x"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("EmptyTitle", func(t *testing.T) {
		svc := NewInventoryService(new(mockRepo), nil, testLogger())
		err := svc.Create(ctx, owner, &models.Inventory{Title: "   "})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("ClientSuppliedIDIgnored", func(t *testing.T) {
		// Идентификатор непрозрачный и назначается при создании; _id из
		// тела запроса не принимается.
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		repo.On("CreateInventory", ctx, mock.AnythingOfType("*models.Inventory")).Return(nil).Once()

		inv := &models.Inventory{ID: "client-chosen", Title: "Garage"}
		err := svc.Create(ctx, owner, inv)
		require.NoError(t, err)
		assert.NotEqual(t, "client-chosen", inv.ID)
		assert.NotEmpty(t, inv.ID)
	})
}

func TestInventoryServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerCanUpdate", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		repo.On("GetInventory", ctx, "inv-1").Return(ownedInventory(), nil).Once()
		repo.On("UpdateInventory", ctx, mock.AnythingOfType("*models.Inventory")).Return(nil).Once()

		updated, err := svc.Update(ctx, owner, "inv-1", InventoryPatch{Title: "Tools v2"})
		require.NoError(t, err)
		assert.Equal(t, "Tools v2", updated.Title)
		repo.AssertExpectations(t)
	})

	t.Run("AdminCanUpdate", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		repo.On("GetInventory", ctx, "inv-1").Return(ownedInventory(), nil).Once()
		repo.On("UpdateInventory", ctx, mock.AnythingOfType("*models.Inventory")).Return(nil).Once()

		_, err := svc.Update(ctx, admin, "inv-1", InventoryPatch{Title: "Renamed"})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		repo.On("GetInventory", ctx, "inv-1").Return(ownedInventory(), nil).Once()

		_, err := svc.Update(ctx, stranger, "inv-1", InventoryPatch{Title: "Hijack"})
		assert.ErrorIs(t, err, ErrForbidden)
		repo.AssertExpectations(t)
	})

	t.Run("UnauthenticatedRejected", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		repo.On("GetInventory", ctx, "inv-1").Return(ownedInventory(), nil).Once()

		_, err := svc.Update(ctx, nobody, "inv-1", InventoryPatch{Title: "x"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		repo.On("GetInventory", ctx, "missing").Return(nil, database.ErrNotFound).Once()

		_, err := svc.Update(ctx, owner, "missing", InventoryPatch{Title: "x"})
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("SchemaMayGrow", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		existing := ownedInventory()
		existing.Schema.AddField(models.BucketString, "color")

		repo.On("GetInventory", ctx, "inv-1").Return(existing, nil).Once()
		repo.On("UpdateInventory", ctx, mock.AnythingOfType("*models.Inventory")).Return(nil).Once()

		var next models.FieldSchema
		next.AddField(models.BucketString, "color")
		next.AddField(models.BucketNumber, "weight")

		updated, err := svc.Update(ctx, owner, "inv-1", InventoryPatch{Title: "Tools", Schema: &next})
		require.NoError(t, err)
		assert.Equal(t, []string{"color"}, updated.Schema.StringFields)
		assert.Equal(t, []string{"weight"}, updated.Schema.NumberFields)
	})

	t.Run("SchemaMayNotShrink", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		existing := ownedInventory()
		existing.Schema.AddField(models.BucketString, "color")
		existing.Schema.AddField(models.BucketString, "brand")

		repo.On("GetInventory", ctx, "inv-1").Return(existing, nil).Once()

		var next models.FieldSchema
		next.AddField(models.BucketString, "color")

		_, err := svc.Update(ctx, owner, "inv-1", InventoryPatch{Title: "Tools", Schema: &next})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("OmittedSchemaKeepsFields", func(t *testing.T) {
		// Редактирование только метаданных (title/description/category) не
		// должно упираться в проверку схемы: nil означает "не трогать".
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		existing := ownedInventory()
		existing.Schema.AddField(models.BucketString, "color")

		repo.On("GetInventory", ctx, "inv-1").Return(existing, nil).Once()
		repo.On("UpdateInventory", ctx, mock.AnythingOfType("*models.Inventory")).Return(nil).Once()

		updated, err := svc.Update(ctx, owner, "inv-1", InventoryPatch{Title: "Tools v2", Category: "garage"})
		require.NoError(t, err)
		assert.Equal(t, "Tools v2", updated.Title)
		assert.Equal(t, []string{"color"}, updated.Schema.StringFields)
	})
}

func TestInventoryServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerCanDelete", func(t *testing.T) {
		repo := new(mockRepo)
		bus := events.NewEventBus()
		var deleted bool
		bus.Subscribe(events.EventInventoryDeleted, func(_ *events.Event) error {
			deleted = true
			return nil
		})
		svc := NewInventoryService(repo, bus, testLogger())

		repo.On("GetInventory", ctx, "inv-1").Return(ownedInventory(), nil).Once()
		repo.On("DeleteInventory", ctx, "inv-1").Return(nil).Once()

		err := svc.Delete(ctx, owner, "inv-1")
		require.NoError(t, err)
		assert.True(t, deleted)
		repo.AssertExpectations(t)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		repo.On("GetInventory", ctx, "inv-1").Return(ownedInventory(), nil).Once()

		err := svc.Delete(ctx, stranger, "inv-1")
		assert.ErrorIs(t, err, ErrForbidden)
		repo.AssertNotCalled(t, "DeleteInventory", ctx, "inv-1")
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		repo.On("GetInventory", ctx, "missing").Return(nil, database.ErrNotFound).Once()

		err := svc.Delete(ctx, owner, "missing")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestInventoryServiceSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("Unauthenticated", func(t *testing.T) {
		svc := NewInventoryService(new(mockRepo), nil, testLogger())
		_, err := svc.Search(ctx, nobody, "tools")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("BlankQueryShortCircuits", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		got, err := svc.Search(ctx, owner, "   ")
		require.NoError(t, err)
		assert.Empty(t, got)
		repo.AssertNotCalled(t, "SearchInventories", ctx, mock.Anything)
	})

	t.Run("DelegatesTrimmedQuery", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		want := []*models.Inventory{ownedInventory()}
		repo.On("SearchInventories", ctx, "tools").Return(want, nil).Once()

		got, err := svc.Search(ctx, owner, "  tools ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		repo.AssertExpectations(t)
	})
}

func TestInventoryServiceListOwnedBy(t *testing.T) {
	ctx := context.Background()

	t.Run("Unauthenticated", func(t *testing.T) {
		svc := NewInventoryService(new(mockRepo), nil, testLogger())
		_, err := svc.ListOwnedBy(ctx, nobody)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("FiltersByOwner", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewInventoryService(repo, nil, testLogger())

		want := []*models.Inventory{ownedInventory()}
		repo.On("ListInventoriesByOwner", ctx, owner.UserID).Return(want, nil).Once()

		got, err := svc.ListOwnedBy(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestInventoryServiceRepoError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := NewInventoryService(repo, nil, testLogger())

	repo.On("CreateInventory", ctx, mock.Anything).Return(errors.New("db down")).Once()

	err := svc.Create(ctx, owner, &models.Inventory{Title: "x"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}
