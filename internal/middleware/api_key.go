package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// APIKeyValidator resolves an API key to its owner
type APIKeyValidator interface {
	ValidateAPIKey(key string) (*models.User, error)
}

// APIKeyMiddleware handles API key authentication
type APIKeyMiddleware struct {
	apiKeyService APIKeyValidator
}

// NewAPIKeyMiddleware creates a new API key middleware
func NewAPIKeyMiddleware(apiKeyService APIKeyValidator) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		apiKeyService: apiKeyService,
	}
}

// APIKeyAuthMiddleware validates API key and sets user context.
// Requests without an "ApiKey " header fall through to the bearer middleware.
func (m *APIKeyMiddleware) APIKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "ApiKey ") {
			c.Next()
			return
		}

		apiKey := strings.TrimSpace(strings.TrimPrefix(authHeader, "ApiKey "))
		if apiKey == "" {
			abortWithError(c, apperror.Unauthorized("Invalid API key format"))
			return
		}

		user, err := m.apiKeyService.ValidateAPIKey(apiKey)
		if err != nil {
			if appErr, ok := apperror.As(err); ok {
				abortWithError(c, appErr)
				return
			}
			abortWithError(c, apperror.Unauthorized("Invalid API key"))
			return
		}

		setUser(c, user)
		c.Set(ContextAuthType, "api_key")

		c.Next()
	}
}
