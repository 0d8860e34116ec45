package conversation

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message of the chat. Turns are never edited once stored.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the chat memory of exactly one user. Version increments on
// every save.
type State struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Messages    []Turn    `json:"messages" db:"messages"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
	Version     int64     `json:"-" db:"version"`
}
