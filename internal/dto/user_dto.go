package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserResponse struct {
	Id        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarUrl *string   `json:"avatar_url,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfileResponse is the public view of a user; no email.
type UserProfileResponse struct {
	Id         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	AvatarUrl  *string   `json:"avatar_url,omitempty"`
	Bio        *string   `json:"bio,omitempty"`
	MediaCount int64     `json:"media_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=100"`
	AvatarUrl *string `json:"avatar_url" validate:"omitempty,max=500"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
}
