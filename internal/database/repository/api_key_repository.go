package repository

import (
	"errors"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"gorm.io/gorm"
)

// APIKeyRepository handles database operations for APIKey entities
type APIKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository instance
func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// GetActiveByHash retrieves an active key by the hash of its value
func (r *APIKeyRepository) GetActiveByHash(hash string) (*models.APIKey, error) {
	var apiKey models.APIKey
	if err := r.db.Where("key_hash = ? AND is_active = ?", hash, true).First(&apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &apiKey, nil
}

// ListByUser returns the user's keys, newest first
func (r *APIKeyRepository) ListByUser(userID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// Create adds a new API key
func (r *APIKeyRepository) Create(apiKey *models.APIKey) error {
	return r.db.Create(apiKey).Error
}

// UpdateLastUsed updates the last used timestamp for an API key
func (r *APIKeyRepository) UpdateLastUsed(id string) error {
	now := time.Now()
	return r.db.Model(&models.APIKey{}).Where("id = ?", id).Update("last_used_at", now).Error
}

// Delete removes one of the user's keys
func (r *APIKeyRepository) Delete(id, userID string) (bool, error) {
	result := r.db.Delete(&models.APIKey{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return false, result.Error
	}
	// If no rows were affected, the API key was not found
	return result.RowsAffected > 0, nil
}
