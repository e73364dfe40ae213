package entity

import (
	"time"

	"github.com/google/uuid"
)

type MediaFile struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	FileName      string
	FileType      string // "image" or "video"
	MimeType      string
	FilePath      string
	ThumbnailPath *string
	FileSize      int64
	Width         *int
	Height        *int
	Duration      *int // seconds, videos only
	Description   *string
	Tags          []string
	ViewCount     int
	LikeCount     int
	IsPublic      bool
	UploadedAt    time.Time
	UpdatedAt     *time.Time
}
