package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one issued refresh credential. Only the SHA-256 hash of
// the opaque token is stored; a revoked or expired row can never mint a new
// access token.
type RefreshToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
