package dto

import (
	"time"

	"github.com/google/uuid"
)

type MediaFileResponse struct {
	Id            uuid.UUID  `json:"id"`
	UserId        uuid.UUID  `json:"user_id"`
	FileName      string     `json:"file_name"`
	FileType      string     `json:"file_type"`
	MimeType      string     `json:"mime_type"`
	Url           string     `json:"url"`
	ThumbnailUrl  *string    `json:"thumbnail_url,omitempty"`
	FileSize      int64      `json:"file_size"`
	Width         *int       `json:"width,omitempty"`
	Height        *int       `json:"height,omitempty"`
	Duration      *int       `json:"duration,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Tags          []string   `json:"tags"`
	ViewCount     int        `json:"view_count"`
	LikeCount     int        `json:"like_count"`
	IsPublic      bool       `json:"is_public"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type MediaListResponse struct {
	Items      []*MediaFileResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

type UpdateMediaRequest struct {
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,max=50"`
	IsPublic    *bool    `json:"is_public"`
}

type UploadResponse struct {
	Files []*MediaFileResponse `json:"files"`
}

// PublishThumbnailMessage is the payload queued for the thumbnail worker.
type PublishThumbnailMessage struct {
	MediaFileId uuid.UUID `json:"media_file_id"`
}
