package repository

import (
	"context"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/utils"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email (case-insensitive)
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateLastLogin updates the last login time for a user
func (r *UserRepository) UpdateLastLogin(userID string) error {
	now := time.Now()
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", now).Error
}

// UpdatePassword stores a new hash and invalidates issued access tokens
func (r *UserRepository) UpdatePassword(userID, passwordHash string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"password_hash": passwordHash,
		"token_version": gorm.Expr("token_version + 1"),
	}).Error
}

// SetActive toggles the account and invalidates issued access tokens
func (r *UserRepository) SetActive(userID string, active bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"is_active":     active,
		"token_version": gorm.Expr("token_version + 1"),
	}).Error
}

// IncrementTokenVersion increments the token version for a user
func (r *UserRepository) IncrementTokenVersion(userID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
}

// CheckEmailExists checks if an email is already registered
func (r *UserRepository) CheckEmailExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	return count > 0, err
}

// Delete removes a user; dependent rows cascade
func (r *UserRepository) Delete(userID string) (bool, error) {
	result := r.db.Delete(&models.User{}, "id = ?", userID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetAllUsers returns users matching search with pagination
func (r *UserRepository) GetAllUsers(page, pageSize int, search string) ([]models.User, int64, error) {
	var users []models.User
	var total int64
	query := r.db.Model(&models.User{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("email ILIKE ? OR business_name ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", like, like, like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("Subscription").Order("created_at DESC").
		Offset(utils.CalculateOffset(page, pageSize)).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CountUsers returns the total and active user counts
func (r *UserRepository) CountUsers(ctx context.Context) (total, active int64, err error) {
	db := r.db.WithContext(ctx)
	if err = db.Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = db.Model(&models.User{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

// CountSignupsSince counts users created after since
func (r *UserRepository) CountSignupsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}
