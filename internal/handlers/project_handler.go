package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/export"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/preview"
)

// ProjectService generates and manages a user's documents
type ProjectService interface {
	Generate(ctx context.Context, userID string, req *models.GenerateRequest) (*models.GenerateResponse, error)
	Get(userID, id string) (*models.Project, error)
	List(filter repository.ProjectFilter, page, pageSize int) ([]models.ProjectListItem, int64, error)
	Update(userID, id string, req *models.UpdateProjectRequest) (*models.Project, error)
	Delete(userID, id string) error
	Preview(userID, id string) (*preview.Preview, error)
	Export(ctx context.Context, userID, id, format string) (*export.Artifact, error)
	Archive(ctx context.Context, userID, id, format string) (*models.ArchiveResponse, error)
}

type ProjectHandler struct {
	projectService ProjectService
}

func NewProjectHandler(projectService ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// DocumentType describes one supported document kind
type DocumentType struct {
	Type          models.DocumentKind `json:"type" example:"pitch_deck"`
	Label         string              `json:"label" example:"Pitch Deck"`
	SlideDeck     bool                `json:"slide_deck"`
	DefaultFormat string              `json:"default_format" example:"pptx"`
}

// DocumentTypes godoc
// @Summary List document types
// @Tags documents
// @Produce json
// @Success 200 {object} map[string]interface{} "success: true, document_types: []DocumentType"
// @Router /api/v1/document-types [get]
func (h *ProjectHandler) DocumentTypes(c *gin.Context) {
	kinds := models.AllDocumentKinds()
	types := make([]DocumentType, 0, len(kinds))
	for _, k := range kinds {
		format, _ := export.ResolveFormat("", string(k))
		types = append(types, DocumentType{
			Type:          k,
			Label:         k.Label(),
			SlideDeck:     k.IsSlideDeck(),
			DefaultFormat: string(format),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "document_types": types})
}

// Generate godoc
// @Summary Generate a document
// @Description Generate a business document with the LLM and save it as a project. Counts against the monthly plan quota.
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.GenerateRequest true "Document type and structured input"
// @Success 201 {object} models.GenerateResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 402 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/generate [post]
func (h *ProjectHandler) Generate(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.projectService.Generate(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List my projects
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param type query string false "Document type"
// @Param status query string false "draft or completed"
// @Param search query string false "Search in title and business name"
// @Success 200 {object} map[string]interface{} "success: true, projects: []models.ProjectListItem, pagination"
// @Router /api/v1/projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := pagination(c)
	filter := projectFilter(c)
	filter.UserID = middleware.UserID(c)

	items, total, err := h.projectService.List(filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "projects", items, total, page, pageSize)
}

func projectFilter(c *gin.Context) repository.ProjectFilter {
	filter := repository.ProjectFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}
	if kind, ok := models.ParseDocumentKind(c.Query("type")); ok {
		filter.Type = kind
	}
	return filter
}

// Get godoc
// @Summary Get a project
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projectService.Get(middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Update godoc
// @Summary Update a project
// @Description Edit the title or content, or move the project between draft and completed
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param request body models.UpdateProjectRequest true "Fields to change"
// @Success 200 {object} models.Project
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	project, err := h.projectService.Update(middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Delete godoc
// @Summary Delete a project
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projectService.Delete(middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Project deleted successfully"})
}

// Preview godoc
// @Summary Preview a project
// @Description Lay the project out as pages or slides for on-screen rendering
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Success 200 {object} preview.Preview
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/projects/{id}/preview [get]
func (h *ProjectHandler) Preview(c *gin.Context) {
	p, err := h.projectService.Preview(middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Export godoc
// @Summary Export a project
// @Tags projects
// @Produce application/octet-stream
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param format query string false "docx, pptx, pdf, txt or xlsx"
// @Success 200 {file} binary "Document file"
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/projects/{id}/export [get]
func (h *ProjectHandler) Export(c *gin.Context) {
	artifact, err := h.projectService.Export(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	writeArtifact(c, artifact)
}

// Archive godoc
// @Summary Archive a project export
// @Description Upload the exported file to object storage and return a presigned download link
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param format query string false "docx, pptx, pdf, txt or xlsx"
// @Success 201 {object} models.ArchiveResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/projects/{id}/archive [post]
func (h *ProjectHandler) Archive(c *gin.Context) {
	resp, err := h.projectService.Archive(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
