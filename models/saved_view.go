package models

import (
	"encoding/json"
	"time"
)

// SavedView is a named, persisted filter + sort spec for a list endpoint.
// Filters and Sorting are stored as raw JSON: the filter tree schema is owned
// by the query package and validated there at compile time, not on write.
// System views are seeded at boot and protected from deletion.

const (
	ViewTypeClient = "client"
	ViewTypeTask   = "task"
)

type SavedView struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	UserID      *int            `json:"userId,omitempty"`
	ViewType    string          `json:"viewType"`
	Filters     json.RawMessage `json:"filters"`
	IsSystem    bool            `json:"isSystem"`
	Position    int             `json:"position"`
	ColumnOrder json.RawMessage `json:"columnOrder,omitempty"`
	Sorting     json.RawMessage `json:"sorting,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
