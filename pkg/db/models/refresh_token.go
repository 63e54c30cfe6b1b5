package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the stateful ledger entry behind a refresh credential.
// Access tokens are verified statelessly; refresh tokens must survive a
// ledger lookup so they stay individually revocable.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Token     string    `gorm:"column:token;type:text;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	Revoked   bool      `gorm:"column:revoked;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Active reports whether the token can still be presented.
func (r RefreshToken) Active(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}
