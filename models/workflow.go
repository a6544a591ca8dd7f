package models

import (
	"encoding/json"
	"time"
)

// Trigger and action types are a small closed enumeration, extensible only by
// adding new cases here and in the workflow engine.
const (
	TriggerClientCreated = "CLIENT_CREATED"
)

const (
	ActionCreateTask = "CREATE_TASK"
	ActionSendEmail  = "SEND_EMAIL"
)

type Workflow struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	OwnerID      int             `json:"ownerId"`
	TriggerType  string          `json:"triggerType"`
	ActionType   string          `json:"actionType"`
	ActionConfig json.RawMessage `json:"actionConfig"`
	Filters      json.RawMessage `json:"filters"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
