package contract

import (
	"context"

	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/internal/repository/specification"

	"github.com/google/uuid"
)

type MediaFileRepository interface {
	Create(ctx context.Context, file *entity.MediaFile) error
	Update(ctx context.Context, file *entity.MediaFile) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MediaFile, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MediaFile, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
