package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockpile/internal/models"
)

const inventoryColumns = `id, owner_id, title, description, category, schema, created_at, updated_at`

// CreateInventory persists a new inventory with its embedded field schema.
func (db *DB) CreateInventory(ctx context.Context, inv *models.Inventory) error {
	schemaJSON, err := json.Marshal(inv.Schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	query := `INSERT INTO inventories (id, owner_id, title, description, category, schema, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		inv.ID,
		inv.OwnerID,
		inv.Title,
		inv.Description,
		inv.Category,
		string(schemaJSON),
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inventory: %w", err)
	}
	return nil
}

// GetInventory returns the inventory with the given id or ErrNotFound.
func (db *DB) GetInventory(ctx context.Context, id string) (*models.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE id = ?`
	row := db.QueryRowContext(ctx, query, id)

	inv, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	return inv, nil
}

// ListInventories returns every inventory, most recent first.
func (db *DB) ListInventories(ctx context.Context) ([]*models.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories ORDER BY created_at DESC`
	return db.queryInventories(ctx, query)
}

// ListInventoriesByOwner returns inventories owned by one user, most recent first.
func (db *DB) ListInventoriesByOwner(ctx context.Context, ownerID string) ([]*models.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE owner_id = ? ORDER BY created_at DESC`
	return db.queryInventories(ctx, query, ownerID)
}

// SearchInventories matches query as a case-insensitive substring of title
// or category.
func (db *DB) SearchInventories(ctx context.Context, query string) ([]*models.Inventory, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	stmt := `SELECT ` + inventoryColumns + ` FROM inventories
             WHERE lower(title) LIKE ? ESCAPE '\' OR lower(category) LIKE ? ESCAPE '\'
             ORDER BY created_at DESC`
	return db.queryInventories(ctx, stmt, pattern, pattern)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// UpdateInventory rewrites the mutable attributes of an inventory. The
// owner, id and creation time are never touched.
func (db *DB) UpdateInventory(ctx context.Context, inv *models.Inventory) error {
	schemaJSON, err := json.Marshal(inv.Schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	query := `UPDATE inventories SET title = ?, description = ?, category = ?, schema = ?, updated_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query,
		inv.Title,
		inv.Description,
		inv.Category,
		string(schemaJSON),
		inv.UpdatedAt,
		inv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInventory removes the inventory and cascades to all of its items in
// one transaction.
func (db *DB) DeleteInventory(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE inventory_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete inventory items: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM inventories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// CountInventories returns the total number of inventories.
func (db *DB) CountInventories(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventories`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count inventories: %w", err)
	}
	return count, nil
}

func (db *DB) queryInventories(ctx context.Context, query string, args ...any) ([]*models.Inventory, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventories: %w", err)
	}
	defer rows.Close()

	// Пустой результат — это [], а не null: клиенты итерируют ответ как массив.
	inventories := make([]*models.Inventory, 0)
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		inventories = append(inventories, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return inventories, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInventory(row rowScanner) (*models.Inventory, error) {
	var (
		inv         models.Inventory
		description sql.NullString
		category    sql.NullString
		schemaJSON  string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.Title, &description, &category, &schemaJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	inv.Description = description.String
	inv.Category = category.String
	inv.CreatedAt = createdAt
	inv.UpdatedAt = updatedAt

	if schemaJSON != "" {
		if err := json.Unmarshal([]byte(schemaJSON), &inv.Schema); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
		}
	}
	return &inv, nil
}
