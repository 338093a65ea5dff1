package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/admin"
)

// AdminService computes dashboard stats and payment reports
type AdminService interface {
	Dashboard(ctx context.Context) (*admin.Dashboard, error)
	ListPayments(ctx context.Context, filter repository.PaymentFilter, page, pageSize int) ([]models.Payment, int64, error)
	PaymentReport(ctx context.Context, filter repository.PaymentFilter) ([]byte, string, error)
}

// UserDirectory lists and removes accounts
type UserDirectory interface {
	GetAllUsers(page, pageSize int, search string) ([]models.User, int64, error)
	Delete(userID string) (bool, error)
}

// ActivityFeed lists recorded activity
type ActivityFeed interface {
	List(filter models.ActivityFilter, page, pageSize int) ([]models.ActivityLog, int64, error)
}

type AdminHandler struct {
	adminService   AdminService
	authService    AuthService
	users          UserDirectory
	projectService ProjectService
	activity       ActivityFeed
	hub            *activity.SSEHub
	recorder       activity.Recorder
	heartbeat      time.Duration
}

func NewAdminHandler(adminService AdminService, authService AuthService, users UserDirectory, projectService ProjectService, feed ActivityFeed, hub *activity.SSEHub, recorder activity.Recorder) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		authService:    authService,
		users:          users,
		projectService: projectService,
		activity:       feed,
		hub:            hub,
		recorder:       recorder,
		heartbeat:      30 * time.Second,
	}
}

// Dashboard godoc
// @Summary Admin dashboard
// @Description Users, projects by type, payments, revenue and subscriptions by plan
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} admin.Dashboard
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.adminService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// ListUsers godoc
// @Summary Get all users (Admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param search query string false "Search email, name or business"
// @Success 200 {object} map[string]interface{} "success: true, users: []models.User, pagination"
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, pageSize := pagination(c)
	users, total, err := h.users.GetAllUsers(page, pageSize, strings.TrimSpace(c.Query("search")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "users", users, total, page, pageSize)
}

// SetUserStatus godoc
// @Summary Set user active status (Admin only)
// @Description Deactivating a user ends every session
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body models.SetUserActiveRequest true "Status request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/users/{id}/status [put]
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	userID := c.Param("id")

	var req models.SetUserActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if userID == middleware.UserID(c) && !req.IsActive {
		respondError(c, apperror.Validation("Cannot deactivate your own account"))
		return
	}

	if err := h.authService.SetUserActive(userID, req.IsActive); err != nil {
		respondError(c, err)
		return
	}

	state := "deactivated"
	if req.IsActive {
		state = "activated"
	}
	h.recorder.Record(c.Request.Context(), models.ActivityLog{
		UserID:     userID,
		Action:     models.ActionUserStatusChanged,
		EntityType: "user",
		EntityID:   userID,
		Message:    fmt.Sprintf("User %s by admin", state),
		Metadata:   models.JSON{"is_active": req.IsActive, "admin_id": middleware.UserID(c)},
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User status updated successfully"})
}

// DeleteUser godoc
// @Summary Delete a user (Admin only)
// @Description Removes the account with its projects, payments and subscription
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	// Prevent admin from deleting themselves
	if userID == middleware.UserID(c) {
		respondError(c, apperror.Validation("Cannot delete your own account"))
		return
	}

	deleted, err := h.users.Delete(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		respondError(c, apperror.NotFound("User not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}

// ResetPassword godoc
// @Summary Reset a user's password (Admin only)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body models.ResetPasswordRequest true "New password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/users/{id}/reset-password [post]
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authService.ResetPassword(c.Param("id"), req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successfully"})
}

// ListProjects godoc
// @Summary List every project (Admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param user_id query string false "Owner"
// @Param type query string false "Document type"
// @Param status query string false "draft or completed"
// @Param search query string false "Search in title and business name"
// @Success 200 {object} map[string]interface{} "success: true, projects: []models.ProjectListItem, pagination"
// @Router /api/v1/admin/projects [get]
func (h *AdminHandler) ListProjects(c *gin.Context) {
	page, pageSize := pagination(c)
	filter := projectFilter(c)
	filter.UserID = c.Query("user_id")

	items, total, err := h.projectService.List(filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "projects", items, total, page, pageSize)
}

// ListPayments godoc
// @Summary List payments (Admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param status query string false "PENDING, COMPLETED or FAILED"
// @Param user_id query string false "Payer"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD), inclusive"
// @Success 200 {object} map[string]interface{} "success: true, payments: []models.Payment, pagination"
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/payments [get]
func (h *AdminHandler) ListPayments(c *gin.Context) {
	filter, err := paymentFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, pageSize := pagination(c)

	payments, total, err := h.adminService.ListPayments(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "payments", payments, total, page, pageSize)
}

// PaymentReport godoc
// @Summary Download payments report (Admin only)
// @Description Excel workbook with a Payments sheet and a Summary sheet
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "PENDING, COMPLETED or FAILED"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD), inclusive"
// @Success 200 {file} binary "Excel file"
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/admin/reports/payments [get]
func (h *AdminHandler) PaymentReport(c *gin.Context) {
	filter, err := paymentFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	data, filename, err := h.adminService.PaymentReport(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Cache-Control", "must-revalidate")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func paymentFilter(c *gin.Context) (repository.PaymentFilter, error) {
	filter := repository.PaymentFilter{
		UserID: c.Query("user_id"),
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}
	switch filter.Status {
	case "", models.PaymentPending, models.PaymentCompleted, models.PaymentFailed:
	default:
		return filter, apperror.Validation(fmt.Sprintf("invalid status %q", c.Query("status")))
	}
	if v := c.Query("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, apperror.Validation("from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, apperror.Validation("to must be YYYY-MM-DD")
		}
		// inclusive of the whole day
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}
	return filter, nil
}

// ListActivity godoc
// @Summary Activity log (Admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param user_id query string false "User"
// @Param action query string false "Action, e.g. document.generated"
// @Success 200 {object} map[string]interface{} "success: true, activity: []models.ActivityLog, pagination"
// @Router /api/v1/admin/activity [get]
func (h *AdminHandler) ListActivity(c *gin.Context) {
	page, pageSize := pagination(c)
	filter := models.ActivityFilter{
		UserID: c.Query("user_id"),
		Action: c.Query("action"),
	}

	logs, total, err := h.activity.List(filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "activity", logs, total, page, pageSize)
}

// StreamActivity godoc
// @Summary Stream activity via Server-Sent Events (Admin only)
// @Tags admin
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 "SSE stream"
// @Router /api/v1/admin/activity/stream [get]
func (h *AdminHandler) StreamActivity(c *gin.Context) {
	streamFeed(c, h.hub, activity.FeedAll, h.heartbeat)
}
