package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
)

// AuthService is the account surface used by AuthHandler and AdminHandler
type AuthService interface {
	Signup(req *models.SignupRequest) (*models.AuthResponse, error)
	Login(req *models.LoginRequest, userAgent, ip string) (*models.AuthResponse, error)
	RefreshToken(refreshToken, userAgent, ip string) (*models.AuthResponse, error)
	Logout(refreshToken, userID string) error
	GetUser(userID string) (*models.User, error)
	UpdateProfile(userID string, req *models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(userID, currentPassword, newPassword string) error
	SetUserActive(userID string, isActive bool) error
	ResetPassword(userID, newPassword string) error
}

type AuthHandler struct {
	authService AuthService
	recorder    activity.Recorder
}

func NewAuthHandler(authService AuthService, recorder activity.Recorder) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		recorder:    recorder,
	}
}

// Signup godoc
// @Summary Register a business owner
// @Description Create an account and return a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.SignupRequest true "Signup request"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.authService.Signup(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.record(c.Request.Context(), response.User.ID, models.ActionSignup, fmt.Sprintf("%s signed up", response.User.Email))
	c.JSON(http.StatusCreated, response)
}

// Login godoc
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request (email and password)"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.authService.Login(&req, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	h.record(c.Request.Context(), response.User.ID, models.ActionLogin, fmt.Sprintf("%s logged in", response.User.Email))
	c.JSON(http.StatusOK, response)
}

// RefreshToken godoc
// @Summary Refresh access token
// @Description Rotate the refresh token and issue a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshTokenRequest true "Refresh token request"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.authService.RefreshToken(req.RefreshToken, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Logout godoc
// @Summary Logout user
// @Description Revoke the given refresh token, or every session when none is given
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LogoutRequest false "Logout request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	// Body is optional
	_ = c.ShouldBindJSON(&req)

	if err := h.authService.Logout(req.RefreshToken, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// GetProfile godoc
// @Summary Get user profile
// @Description Get the current user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.authService.GetUser(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update user profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change the current user's password. Every session is revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Change password request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authService.ChangePassword(middleware.UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully"})
}

func (h *AuthHandler) record(ctx context.Context, userID, action, message string) {
	h.recorder.Record(ctx, models.ActivityLog{
		UserID:     userID,
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
		Message:    message,
	})
}
