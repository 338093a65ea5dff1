package repository

import (
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"

	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create creates a new refresh token
func (r *RefreshTokenRepository) Create(refreshToken *models.RefreshToken) error {
	return r.db.Create(refreshToken).Error
}

// GetByToken retrieves a refresh token by token string, revoked or not
func (r *RefreshTokenRepository) GetByToken(token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	err := r.db.Where("token = ?", token).First(&refreshToken).Error
	if err != nil {
		return nil, err
	}
	return &refreshToken, nil
}

// Rotate revokes old and stores next in one transaction
func (r *RefreshTokenRepository) Rotate(old *models.RefreshToken, next *models.RefreshToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(next).Error; err != nil {
			return err
		}
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND is_revoked = ?", old.ID, false).
			Updates(map[string]interface{}{"is_revoked": true, "replaced_by": next.ID})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// lost a race with a concurrent refresh of the same token
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// RevokeToken revokes a specific refresh token
func (r *RefreshTokenRepository) RevokeToken(token string) error {
	return r.db.Model(&models.RefreshToken{}).Where("token = ?", token).Update("is_revoked", true).Error
}

// RevokeAllUserTokens revokes all refresh tokens for a user
func (r *RefreshTokenRepository) RevokeAllUserTokens(userID string) error {
	return r.db.Model(&models.RefreshToken{}).Where("user_id = ?", userID).Update("is_revoked", true).Error
}

// CleanupTokens deletes expired and revoked tokens, returning how many
func (r *RefreshTokenRepository) CleanupTokens() (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		deleted += res.RowsAffected
		res = tx.Where("is_revoked = ?", true).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		deleted += res.RowsAffected
		return nil
	})
	return deleted, err
}
