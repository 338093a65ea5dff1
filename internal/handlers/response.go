package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/utils"
)

// respondError writes the {success: false, error} shape. Causes of 5xx
// responses are logged and reported, never returned to the client.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"code":    appErr.Code,
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"user_id": middleware.UserID(c),
		}).Error(appErr.Message)
		utils.CaptureError(err, map[string]string{
			"code":  string(appErr.Code),
			"route": c.FullPath(),
		})
	}

	c.JSON(appErr.HTTPStatus, gin.H{
		"success": false,
		"error":   appErr.Message,
	})
}

// respondBindError reports a malformed request body
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

func respondList(c *gin.Context, key string, items interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		key:          items,
		"pagination": utils.CalculatePaginationInfo(int(total), page, pageSize),
	})
}

func pagination(c *gin.Context) (int, int) {
	return utils.ParsePaginationFromQuery(c.Query("page"), c.Query("page_size"))
}
