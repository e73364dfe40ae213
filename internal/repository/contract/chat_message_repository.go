package contract

import (
	"context"

	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/internal/repository/specification"
)

// ChatMessageRepository is append-only: messages are never updated or
// deleted once written.
type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
