package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title" validate:"max=200"`
	Model string `json:"model" validate:"max=50"`
}

type ChatSessionResponse struct {
	Id            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Model         string     `json:"model"`
	MessageCount  int64      `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type SessionListResponse struct {
	Items      []*ChatSessionResponse `json:"items"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

type ChatMessageResponse struct {
	Id         uuid.UUID `json:"id"`
	SessionId  uuid.UUID `json:"session_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Model      *string   `json:"model,omitempty"`
	TokenCount *int      `json:"token_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ChatSessionDetailResponse struct {
	Id        uuid.UUID              `json:"id"`
	Title     string                 `json:"title"`
	Model     string                 `json:"model"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Messages  []*ChatMessageResponse `json:"messages"`
}

type UpdateSessionRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
	Model   string `json:"model" validate:"max=50"` // optional per-call override
}

// Chat stream event types, emitted in order start -> content* -> terminal.
const (
	StreamEventStart     = "start"
	StreamEventContent   = "content"
	StreamEventDone      = "done"
	StreamEventError     = "error"
	StreamEventCancelled = "cancelled"
)

// ChatStreamEvent is one SSE frame of the relay's client-facing stream.
type ChatStreamEvent struct {
	Type       string     `json:"type"`
	MessageId  *uuid.UUID `json:"messageId,omitempty"`
	Delta      string     `json:"delta,omitempty"`
	TokenCount *int       `json:"tokenCount,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type ModelInfoResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	MaxTokens   int    `json:"max_tokens"`
}
