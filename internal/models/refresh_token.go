package models

import (
	"time"
)

// RefreshToken is a long-lived opaque token exchanged for new access tokens.
// Tokens are single use: refreshing revokes the old row and links it to the
// replacement.
type RefreshToken struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Token      string    `json:"-" gorm:"type:varchar(128);not null;unique;index"`
	UserID     string    `json:"user_id" gorm:"not null;index;type:uuid"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
	IsRevoked  bool      `json:"is_revoked" gorm:"default:false;index"`
	ReplacedBy *string   `json:"replaced_by,omitempty" gorm:"type:uuid"`
	UserAgent  string    `json:"user_agent" gorm:"type:varchar(500)"`
	IPAddress  string    `json:"ip_address" gorm:"type:varchar(45)"`
	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the RefreshToken model
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Usable reports whether the token can still be exchanged
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
