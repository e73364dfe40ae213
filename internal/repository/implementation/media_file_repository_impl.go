package implementation

import (
	"context"
	"errors"

	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/internal/mapper"
	"github.com/Tairs07/Media/internal/model"
	"github.com/Tairs07/Media/internal/repository/contract"
	"github.com/Tairs07/Media/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MediaFileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MediaMapper
}

func NewMediaFileRepository(db *gorm.DB) contract.MediaFileRepository {
	return &MediaFileRepositoryImpl{
		db:     db,
		mapper: mapper.NewMediaMapper(),
	}
}

func (r *MediaFileRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MediaFileRepositoryImpl) Create(ctx context.Context, file *entity.MediaFile) error {
	m := r.mapper.ToModel(file)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*file = *r.mapper.ToEntity(m)
	return nil
}

func (r *MediaFileRepositoryImpl) Update(ctx context.Context, file *entity.MediaFile) error {
	m := r.mapper.ToModel(file)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*file = *r.mapper.ToEntity(m)
	return nil
}

func (r *MediaFileRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.MediaFile{}, id).Error
}

// IncrementViewCount bumps the counter atomically in SQL so concurrent
// reads don't lose updates.
func (r *MediaFileRepositoryImpl) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.MediaFile{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *MediaFileRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MediaFile, error) {
	var m model.MediaFile
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *MediaFileRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MediaFile, error) {
	var models []*model.MediaFile
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.MediaFile, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *MediaFileRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.MediaFile{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
