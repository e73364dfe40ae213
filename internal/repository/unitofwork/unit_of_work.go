package unitofwork

import (
	"context"

	"github.com/Tairs07/Media/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	MediaFileRepository() contract.MediaFileRepository
}
