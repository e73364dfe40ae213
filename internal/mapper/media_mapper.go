package mapper

import (
	"encoding/json"

	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/internal/model"
)

type MediaMapper struct{}

func NewMediaMapper() *MediaMapper {
	return &MediaMapper{}
}

func (m *MediaMapper) ToModel(e *entity.MediaFile) *model.MediaFile {
	if e == nil {
		return nil
	}
	tags, _ := json.Marshal(e.Tags)
	if e.Tags == nil {
		tags = []byte("[]")
	}
	return &model.MediaFile{
		Id:            e.Id,
		UserId:        e.UserId,
		FileName:      e.FileName,
		FileType:      e.FileType,
		MimeType:      e.MimeType,
		FilePath:      e.FilePath,
		ThumbnailPath: e.ThumbnailPath,
		FileSize:      e.FileSize,
		Width:         e.Width,
		Height:        e.Height,
		Duration:      e.Duration,
		Description:   e.Description,
		Tags:          tags,
		ViewCount:     e.ViewCount,
		LikeCount:     e.LikeCount,
		IsPublic:      e.IsPublic,
		UploadedAt:    e.UploadedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (m *MediaMapper) ToEntity(f *model.MediaFile) *entity.MediaFile {
	if f == nil {
		return nil
	}
	var tags []string
	if len(f.Tags) > 0 {
		_ = json.Unmarshal(f.Tags, &tags)
	}
	return &entity.MediaFile{
		Id:            f.Id,
		UserId:        f.UserId,
		FileName:      f.FileName,
		FileType:      f.FileType,
		MimeType:      f.MimeType,
		FilePath:      f.FilePath,
		ThumbnailPath: f.ThumbnailPath,
		FileSize:      f.FileSize,
		Width:         f.Width,
		Height:        f.Height,
		Duration:      f.Duration,
		Description:   f.Description,
		Tags:          tags,
		ViewCount:     f.ViewCount,
		LikeCount:     f.LikeCount,
		IsPublic:      f.IsPublic,
		UploadedAt:    f.UploadedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}
