package api_key

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"

	"github.com/sirupsen/logrus"
)

const keyPrefix = "bd_"

// KeyStore persists API keys
type KeyStore interface {
	Create(apiKey *models.APIKey) error
	GetActiveByHash(hash string) (*models.APIKey, error)
	ListByUser(userID string) ([]models.APIKey, error)
	UpdateLastUsed(id string) error
	Delete(id, userID string) (bool, error)
}

// UserLookup loads key owners
type UserLookup interface {
	GetByID(id string) (*models.User, error)
}

// Service handles API key operations
type Service struct {
	apiKeyRepo KeyStore
	userRepo   UserLookup
}

// NewService creates a new API key service
func NewService(keys KeyStore, users UserLookup) *Service {
	return &Service{apiKeyRepo: keys, userRepo: users}
}

// GenerateAPIKey creates a key for the user. The plaintext value is only
// returned here; the store keeps its SHA-256 hash.
func (s *Service) GenerateAPIKey(userID, name string) (*models.CreateAPIKeyResponse, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil || user == nil {
		return nil, apperror.NotFound("user not found")
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("user is not active")
	}

	key, err := generateRandomKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}

	apiKey := &models.APIKey{
		Name:     name,
		KeyHash:  HashKey(key),
		Prefix:   key[:len(keyPrefix)+6],
		UserID:   userID,
		IsActive: true,
	}
	if err := s.apiKeyRepo.Create(apiKey); err != nil {
		return nil, fmt.Errorf("failed to create API key: %w", err)
	}

	return &models.CreateAPIKeyResponse{APIKey: *apiKey, Key: key}, nil
}

// ValidateAPIKey validates an API key and returns the associated user
func (s *Service) ValidateAPIKey(key string) (*models.User, error) {
	apiKey, err := s.apiKeyRepo.GetActiveByHash(HashKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	if apiKey == nil {
		return nil, apperror.Unauthorized("invalid API key")
	}

	user, err := s.userRepo.GetByID(apiKey.UserID)
	if err != nil || user == nil {
		return nil, apperror.Unauthorized("user not found")
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("user is not active")
	}

	if err := s.apiKeyRepo.UpdateLastUsed(apiKey.ID); err != nil {
		logrus.Warnf("Failed to update API key last used timestamp: %v", err)
	}

	return user, nil
}

// ListAPIKeys lists the user's keys without their values
func (s *Service) ListAPIKeys(userID string) ([]models.APIKey, error) {
	return s.apiKeyRepo.ListByUser(userID)
}

// DeleteAPIKey deletes one of the user's keys
func (s *Service) DeleteAPIKey(userID, keyID string) error {
	deleted, err := s.apiKeyRepo.Delete(keyID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	if !deleted {
		return apperror.NotFound("API key not found")
	}
	return nil
}

// HashKey returns the hex SHA-256 of a plaintext key
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func generateRandomKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(bytes), nil
}
