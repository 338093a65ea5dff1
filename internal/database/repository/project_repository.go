package repository

import (
	"context"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/utils"

	"gorm.io/gorm"
)

// ProjectFilter narrows project listings. Empty fields match everything.
type ProjectFilter struct {
	UserID string
	Type   models.DocumentKind
	Status string
	Search string
}

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project
func (r *ProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// GetByID retrieves a project regardless of owner
func (r *ProjectRepository) GetByID(id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// GetByIDForUser retrieves a project owned by userID
func (r *ProjectRepository) GetByIDForUser(id, userID string) (*models.Project, error) {
	var project models.Project
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update saves all fields of project
func (r *ProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// Delete removes a project owned by userID
func (r *ProjectRepository) Delete(id, userID string) (bool, error) {
	result := r.db.Delete(&models.Project{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List returns projects matching filter, newest first. Content is not loaded.
func (r *ProjectRepository) List(filter ProjectFilter, page, pageSize int) ([]models.Project, int64, error) {
	var projects []models.Project
	var total int64

	query := r.db.Model(&models.Project{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR business_name ILIKE ?", like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Omit("content", "input").
		Order("created_at DESC").
		Offset(utils.CalculateOffset(page, pageSize)).
		Limit(pageSize).
		Find(&projects).Error
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// TypeCount is one row of CountByType
type TypeCount struct {
	Type  models.DocumentKind `json:"type"`
	Count int64               `json:"count"`
}

// CountByType groups all projects by document kind
func (r *ProjectRepository) CountByType(ctx context.Context) ([]TypeCount, error) {
	var rows []TypeCount
	err := r.db.WithContext(ctx).Model(&models.Project{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

// Count returns the total number of projects
func (r *ProjectRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Count(&count).Error
	return count, err
}
