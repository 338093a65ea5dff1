package models

import (
	"time"
)

// Activity actions
const (
	ActionSignup            = "signup"
	ActionLogin             = "login"
	ActionDocumentGenerated = "document.generated"
	ActionDocumentExported  = "document.exported"
	ActionDocumentArchived  = "document.archived"
	ActionPaymentInitiated  = "payment.initiated"
	ActionPaymentCompleted  = "payment.completed"
	ActionPaymentFailed     = "payment.failed"
	ActionUserStatusChanged = "user.status_changed"
)

// ActivityLog records a user-visible event for the admin feed
type ActivityLog struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID     string    `json:"user_id" gorm:"type:uuid;index" example:"550e8400-e29b-41d4-a716-446655440001"`
	Action     string    `json:"action" gorm:"type:varchar(50);not null;index" example:"document.generated"`
	EntityType string    `json:"entity_type,omitempty" gorm:"type:varchar(50);index" example:"project"`
	EntityID   string    `json:"entity_id,omitempty" gorm:"type:varchar(100);index"`
	Message    string    `json:"message" gorm:"type:text;not null" example:"Generated Pitch Deck for Acme Bakery"`
	Metadata   JSON      `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for the ActivityLog model
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// ActivityFilter narrows the admin activity listing
type ActivityFilter struct {
	UserID string
	Action string
}
