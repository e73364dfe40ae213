package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MediaFile struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID `gorm:"type:uuid;not null;index"`
	FileName      string    `gorm:"type:varchar(255);not null"`
	FileType      string    `gorm:"type:varchar(50);not null;index"`
	MimeType      string    `gorm:"type:varchar(100);not null"`
	FilePath      string    `gorm:"type:varchar(500);not null"`
	ThumbnailPath *string   `gorm:"type:varchar(500)"`
	FileSize      int64     `gorm:"not null"`
	Width         *int
	Height        *int
	Duration      *int
	Description   *string        `gorm:"type:varchar(500)"`
	Tags          datatypes.JSON `gorm:"type:jsonb"` // JSON array of tag strings
	ViewCount     int            `gorm:"not null;default:0"`
	LikeCount     int            `gorm:"not null;default:0"`
	IsPublic      bool           `gorm:"not null;default:true"`
	UploadedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     *time.Time
}

func (MediaFile) TableName() string {
	return "media_files"
}
