package models

import "time"

// Inventory is a named, owned collection of items with an attached custom
// field schema. JSON field names follow the wire format the web client
// expects.
type Inventory struct {
	ID          string      `json:"_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	OwnerID     string      `json:"userId"`
	Schema      FieldSchema `json:"customFields"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
