package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Zaad1704/HNV1-sub001/internal/api/middleware"
	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/services"
	"github.com/gin-gonic/gin"
)

// ExportHandler handles export requests and downloads.
type ExportHandler struct {
	exportService services.IExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService services.IExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// CreateExport handles POST /api/export/request. It answers 202 with the
// pending request; clients poll the status endpoint.
func (h *ExportHandler) CreateExport(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	var input services.ExportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperrors.Validation("body", "invalid JSON: %v", err))
		return
	}

	req, err := h.exportService.CreateExportRequest(c.Request.Context(), orgID, middleware.UserID(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusAccepted, req)
}

// GetStatus handles GET /api/export/status/:id
func (h *ExportHandler) GetStatus(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	req, err := h.exportService.GetExportStatus(c.Request.Context(), orgID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, req)
}

// Download handles GET /api/export/download/:id. Local files are streamed;
// object storage answers with a redirect to a presigned link.
func (h *ExportHandler) Download(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	dl, err := h.exportService.OpenExportDownload(c.Request.Context(), orgID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if dl.RedirectURL != "" {
		c.Redirect(http.StatusFound, dl.RedirectURL)
		return
	}
	defer dl.Body.Close()

	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", dl.FileName),
	})
}

// History handles GET /api/export/history?limit=
func (h *ExportHandler) History(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		respondError(c, apperrors.Validation("limit", "must be a number"))
		return
	}

	reqs, err := h.exportService.ListExports(c.Request.Context(), orgID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, reqs)
}

// Delete handles DELETE /api/export/:id
func (h *ExportHandler) Delete(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.exportService.DeleteExport(c.Request.Context(), orgID, id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id.Hex()})
}
