package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// Context keys set by the auth middlewares
const (
	ContextUserID    = "user_id"
	ContextUser      = "user"
	ContextIsAdmin   = "is_admin"
	ContextAuthType  = "auth_type"
	ContextTokenInfo = "token_info"
)

func setUser(c *gin.Context, user *models.User) {
	c.Set(ContextUserID, user.ID)
	c.Set(ContextUser, user)
	c.Set(ContextIsAdmin, user.IsAdmin)
}

// UserID returns the authenticated user's ID, or "" outside auth routes
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CurrentUser returns the authenticated user
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func abortWithError(c *gin.Context, err *apperror.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, gin.H{
		"success": false,
		"error":   err.Message,
	})
}
