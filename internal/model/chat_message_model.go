package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is append-only; no UpdatedAt / DeletedAt on purpose.
type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_session_created,priority:1"`
	Role          string    `gorm:"type:varchar(20);not null"`
	Content       string    `gorm:"type:text;not null"`
	Model         *string   `gorm:"type:varchar(50)"`
	TokenCount    *int
	CreatedAt     time.Time `gorm:"autoCreateTime;index:idx_chat_messages_session_created,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
