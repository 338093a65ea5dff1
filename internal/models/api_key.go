package models

import (
	"time"
)

// APIKey represents an API key for a user. Only the SHA-256 hash of the key
// is stored; Prefix lets the owner recognise it in listings.
type APIKey struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Name       string     `json:"name" gorm:"type:varchar(100)"`
	KeyHash    string     `json:"-" gorm:"type:varchar(64);not null;unique;index"`
	Prefix     string     `json:"prefix" gorm:"type:varchar(16)"`
	UserID     string     `json:"user_id" gorm:"type:uuid;not null;index"`
	IsActive   bool       `json:"is_active" gorm:"default:true;index"`
	LastUsedAt *time.Time `json:"last_used_at"`

	// Relationships
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the APIKey model
func (APIKey) TableName() string {
	return "api_keys"
}

// CreateAPIKeyRequest names a new key
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"max=100" example:"Zapier"`
}

// CreateAPIKeyResponse carries the plaintext key, shown only once
type CreateAPIKeyResponse struct {
	APIKey
	Key string `json:"key"`
}
