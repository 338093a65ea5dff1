package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// TokenValidator checks an access token and loads its user
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.TokenInfo, *models.User, error)
}

type BearerTokenMiddleware struct {
	validator TokenValidator
}

func NewBearerTokenMiddleware(validator TokenValidator) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{validator: validator}
}

// BearerTokenAuthMiddleware validates JWT token and sets user info in context
func (m *BearerTokenMiddleware) BearerTokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Already authenticated by API key
		if _, exists := c.Get(ContextUserID); exists {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperror.Unauthorized("Authorization header is required"))
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortWithError(c, apperror.Unauthorized("Invalid authorization header format"))
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		tokenInfo, user, err := m.validator.ValidateToken(tokenString)
		if err != nil {
			abortWithError(c, apperror.Unauthorized("Invalid or expired token"))
			return
		}

		setUser(c, user)
		c.Set(ContextTokenInfo, tokenInfo)
		c.Set(ContextAuthType, "bearer")

		c.Next()
	}
}

// RequireAdmin rejects callers whose user is not an administrator
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			abortWithError(c, apperror.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}
