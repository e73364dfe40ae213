package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage rows are immutable once persisted. The relay only ever appends.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string
	Model         *string // set for assistant messages only
	TokenCount    *int    // approximated by character count
	CreatedAt     time.Time
}
