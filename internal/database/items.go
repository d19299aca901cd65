package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"stockpile/internal/models"

	"github.com/mattn/go-sqlite3"
)

const itemColumns = `id, inventory_id, item_id, name, quantity, field_values, created_at, updated_at`

// CreateItem persists a new item. The (inventory_id, item_id) pair is
// unique; a conflict maps to ErrDuplicateItemID.
func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	valuesJSON, err := marshalValues(item.Values)
	if err != nil {
		return err
	}

	query := `INSERT INTO items (id, inventory_id, item_id, name, quantity, field_values, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		item.ID,
		item.InventoryID,
		item.ItemID,
		item.Name,
		item.Quantity,
		valuesJSON,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateItemID
		}
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// GetItem returns one item by storage id, scoped to its inventory.
func (db *DB) GetItem(ctx context.Context, inventoryID, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE inventory_id = ? AND id = ?`
	row := db.QueryRowContext(ctx, query, inventoryID, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListItemsByInventory returns all items of one inventory, most recent first.
func (db *DB) ListItemsByInventory(ctx context.Context, inventoryID string) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE inventory_id = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, inventoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	// Пустой результат — это [], а не null: клиенты итерируют ответ как массив.
	items := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateItem rewrites the mutable attributes of an item.
func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	valuesJSON, err := marshalValues(item.Values)
	if err != nil {
		return err
	}

	query := `UPDATE items SET item_id = ?, name = ?, quantity = ?, field_values = ?, updated_at = ?
              WHERE inventory_id = ? AND id = ?`
	res, err := db.ExecContext(ctx, query,
		item.ItemID,
		item.Name,
		item.Quantity,
		valuesJSON,
		item.UpdatedAt,
		item.InventoryID,
		item.ID,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateItemID
		}
		return fmt.Errorf("failed to update item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes one item of an inventory.
func (db *DB) DeleteItem(ctx context.Context, inventoryID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM items WHERE inventory_id = ? AND id = ?`, inventoryID, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountItemsByInventory returns the number of items in one inventory.
func (db *DB) CountItemsByInventory(ctx context.Context, inventoryID string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE inventory_id = ?`, inventoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func marshalValues(values map[string]any) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal item values: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item       models.Item
		valuesJSON sql.NullString
	)

	err := row.Scan(
		&item.ID,
		&item.InventoryID,
		&item.ItemID,
		&item.Name,
		&item.Quantity,
		&valuesJSON,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if valuesJSON.Valid && valuesJSON.String != "" {
		if err := json.Unmarshal([]byte(valuesJSON.String), &item.Values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item values: %w", err)
		}
	}
	return &item, nil
}
