package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	AvatarUrl    *string
	Bio          *string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	IsActive     bool
}
