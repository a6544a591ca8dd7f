package models

import "time"

// Task statuses and priorities are closed sets; anything else is rejected at
// the handler layer.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

type Task struct {
	ID             int        `json:"id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"dueDate"`
	ClientID       int        `json:"clientId"`
	ClientName     string     `json:"clientName,omitempty"`
	AssignedToID   *int       `json:"assignedToId"`
	AssignedToName *string    `json:"assignedToName,omitempty"`
	CompletedAt    *time.Time `json:"completedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
