package models

import "time"

// Item belongs to exactly one inventory. ID is the opaque storage id;
// ItemID is the user-supplied business identifier, unique within the owning
// inventory. Values is a sparse bag keyed by schema field name — a missing
// key means "unset", never zero or false.
type Item struct {
	ID          string         `json:"_id"`
	InventoryID string         `json:"inventoryId"`
	ItemID      string         `json:"itemId"`
	Name        string         `json:"name"`
	Quantity    int64          `json:"quantity"`
	Values      map[string]any `json:"customValues,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
