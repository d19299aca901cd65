package models

// Stats is a derived summary, recomputed on demand and never persisted.
type Stats struct {
	Inventories int64 `json:"inventories"`
	Items       int64 `json:"items"`
}
