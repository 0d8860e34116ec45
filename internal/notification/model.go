package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeReminder Type = "Reminder"
	TypeAlert    Type = "Alert"
	TypeSummary  Type = "Summary"
)

type Priority string

const (
	PriorityNormal  Priority = "Normal"
	PriorityWarning Priority = "Warning"
	PriorityUrgent  Priority = "Urgent"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      Type      `json:"type"`
	Priority  Priority  `json:"priority"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}
