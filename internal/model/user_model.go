package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	Email        string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	AvatarUrl    *string   `gorm:"type:varchar(500)"`
	Bio          *string   `gorm:"type:varchar(500)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    *time.Time
	IsActive     bool `gorm:"not null;default:true"`
}

func (User) TableName() string {
	return "users"
}
