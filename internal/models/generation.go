package models

import "time"

// Generation is one successful LLM generation. Rows outlive the project they
// produced so monthly usage cannot be reset by deleting documents.
type Generation struct {
	ID         string       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID     string       `json:"user_id" gorm:"type:uuid;not null;index"`
	ProjectID  string       `json:"project_id" gorm:"type:uuid;index"`
	Type       DocumentKind `json:"type" gorm:"type:varchar(50);not null"`
	TokensUsed int          `json:"tokens_used" gorm:"default:0"`
	CreatedAt  time.Time    `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for the Generation model
func (Generation) TableName() string {
	return "generations"
}
