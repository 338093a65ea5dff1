package models

import (
	"encoding/json"
	"time"
)

const (
	ProjectStatusDraft     = "draft"
	ProjectStatusCompleted = "completed"
)

// Project is a generated document owned by a user
type Project struct {
	ID           string       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	UserID       string       `json:"user_id" gorm:"type:uuid;not null;index"`
	Type         DocumentKind `json:"type" gorm:"type:varchar(50);not null;index" example:"pitch_deck"`
	Sector       string       `json:"sector" gorm:"type:varchar(100);index"`
	BusinessName string       `json:"business_name" gorm:"type:varchar(255);not null"`
	Title        string       `json:"title" gorm:"type:varchar(255)"`
	Content      string       `json:"content" gorm:"type:text"`
	Input        JSON         `json:"input,omitempty" gorm:"type:jsonb"`
	Status       string       `json:"status" gorm:"type:varchar(20);not null;default:'draft';index" example:"completed"`
	TokensUsed   int          `json:"tokens_used" gorm:"default:0"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Project model
func (Project) TableName() string {
	return "projects"
}

// DisplayTitle falls back to the document type label
func (p *Project) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Type.Label()
}

// GenerateRequest asks the LLM to write a document
type GenerateRequest struct {
	Type      DocumentKind    `json:"type" binding:"required" example:"pitch_deck"`
	ProjectID string          `json:"project_id,omitempty"`
	Title     string          `json:"title,omitempty" example:"Seed Round 2025"`
	Input     json.RawMessage `json:"input" binding:"required" swaggertype:"object"`
}

// GenerateResponse returns the stored project with its content
type GenerateResponse struct {
	Project    Project `json:"project"`
	TokensUsed int     `json:"tokens_used"`
}

// UpdateProjectRequest edits a stored project
type UpdateProjectRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Status  *string `json:"status,omitempty" example:"completed"`
}

// ProjectListItem omits content in listings
type ProjectListItem struct {
	ID           string       `json:"id"`
	Type         DocumentKind `json:"type"`
	Sector       string       `json:"sector"`
	BusinessName string       `json:"business_name"`
	Title        string       `json:"title"`
	Status       string       `json:"status"`
	UserID       string       `json:"user_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ToListItem converts a project to its listing form
func (p *Project) ToListItem() ProjectListItem {
	return ProjectListItem{
		ID:           p.ID,
		Type:         p.Type,
		Sector:       p.Sector,
		BusinessName: p.BusinessName,
		Title:        p.DisplayTitle(),
		Status:       p.Status,
		UserID:       p.UserID,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ExportRequest is the body of POST /export
type ExportRequest struct {
	Content      string `json:"content" example:"# Executive Summary\nAcme Bakery..."`
	BusinessName string `json:"businessName" example:"Acme Bakery"`
	DocumentType string `json:"documentType,omitempty" example:"pitch_deck"`
	Title        string `json:"title,omitempty"`
	Format       string `json:"format,omitempty" example:"pptx"`
}

// ArchiveResponse points at an uploaded export
type ArchiveResponse struct {
	ObjectKey string    `json:"object_key"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
