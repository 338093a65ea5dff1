package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// APIKeyService manages a user's API keys
type APIKeyService interface {
	GenerateAPIKey(userID, name string) (*models.CreateAPIKeyResponse, error)
	ListAPIKeys(userID string) ([]models.APIKey, error)
	DeleteAPIKey(userID, keyID string) error
}

// APIKeyHandler handles HTTP requests related to API keys
type APIKeyHandler struct {
	apiKeyService APIKeyService
}

// NewAPIKeyHandler creates a new APIKeyHandler instance
func NewAPIKeyHandler(apiKeyService APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{apiKeyService: apiKeyService}
}

// Generate handles POST /api/v1/api-keys
// @Summary Generate API key
// @Description Generate a new API key. The raw key is only returned once.
// @Tags api-key
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateAPIKeyRequest false "Key name"
// @Success 201 {object} map[string]interface{} "success: true, api_key: models.CreateAPIKeyResponse"
// @Failure 400 {object} map[string]interface{} "success: false, error: error message"
// @Router /api/v1/api-keys [post]
func (h *APIKeyHandler) Generate(c *gin.Context) {
	var req models.CreateAPIKeyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	apiKey, err := h.apiKeyService.GenerateAPIKey(middleware.UserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "API key generated successfully",
		"api_key": apiKey,
	})
}

// List handles GET /api/v1/api-keys
// @Summary List API keys
// @Tags api-key
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "success: true, api_keys: []models.APIKey"
// @Router /api/v1/api-keys [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.apiKeyService.ListAPIKeys(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"api_keys": keys,
	})
}

// Delete handles DELETE /api/v1/api-keys/:id
// @Summary Delete API key
// @Tags api-key
// @Produce json
// @Security BearerAuth
// @Param id path string true "API key ID"
// @Success 200 {object} map[string]interface{} "success: true, message: string"
// @Failure 404 {object} map[string]interface{} "success: false, error: error message"
// @Router /api/v1/api-keys/{id} [delete]
func (h *APIKeyHandler) Delete(c *gin.Context) {
	if err := h.apiKeyService.DeleteAPIKey(middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "API key deleted successfully",
	})
}
