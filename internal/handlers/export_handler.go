package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/export"
)

// Exporter assembles downloadable documents
type Exporter interface {
	Export(ctx context.Context, req *models.ExportRequest) (*export.Artifact, error)
}

// ExportHandler turns generated content into a file download
type ExportHandler struct {
	exporter Exporter
	recorder activity.Recorder
}

func NewExportHandler(exporter Exporter, recorder activity.Recorder) *ExportHandler {
	return &ExportHandler{exporter: exporter, recorder: recorder}
}

// Export handles POST /api/v1/export
// @Summary Export document
// @Description Assemble content into DOCX, PPTX, PDF, TXT or XLSX and stream it back. The format defaults to pptx for pitch decks and company profiles, docx otherwise.
// @Tags export
// @Accept json
// @Produce application/octet-stream
// @Security BearerAuth
// @Param request body models.ExportRequest true "Export request"
// @Success 200 {file} binary "Document file"
// @Failure 400 {object} map[string]interface{} "success: false, error: error message"
// @Failure 500 {object} map[string]interface{} "success: false, error: Failed to export document"
// @Router /api/v1/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	artifact, err := h.exporter.Export(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if userID := middleware.UserID(c); userID != "" {
		h.recorder.Record(c.Request.Context(), models.ActivityLog{
			UserID:   userID,
			Action:   models.ActionDocumentExported,
			Message:  fmt.Sprintf("Exported %s", artifact.Filename),
			Metadata: models.JSON{"format": string(artifact.Format)},
		})
	}

	writeArtifact(c, artifact)
}

// writeArtifact streams a file download
func writeArtifact(c *gin.Context, artifact *export.Artifact) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Header("Content-Length", strconv.Itoa(len(artifact.Data)))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}
