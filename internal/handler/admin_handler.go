package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/response"
	"github.com/chhs/grades-backend/internal/service"
	"github.com/chhs/grades-backend/internal/validator"
)

// AdminHandler handles audit and sheet maintenance endpoints.
type AdminHandler struct {
	grades *service.GradeService
	audit  *service.AuditService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(grades *service.GradeService, audit *service.AuditService) *AdminHandler {
	return &AdminHandler{grades: grades, audit: audit}
}

// ListAudit godoc
// GET /api/v1/admin/audit
// Lists grade change audit rows, newest first.
func (h *AdminHandler) ListAudit(c *gin.Context) {
	var filter model.AuditFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entries, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		logError(c, err, "List audit failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"entries": entries}, pagination)
}

// RefreshSnapshot godoc
// POST /api/v1/admin/snapshot/refresh
// Drops the cached worksheets and reloads them from the sheet.
func (h *AdminHandler) RefreshSnapshot(c *gin.Context) {
	summary, err := h.grades.Refresh(c.Request.Context())
	if err != nil {
		failGrade(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// Schema godoc
// GET /api/v1/admin/schema
// Reports how each worksheet header maps onto the expected columns.
func (h *AdminHandler) Schema(c *gin.Context) {
	worksheets, err := h.grades.Schema(c.Request.Context())
	if err != nil {
		failGrade(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"worksheets": worksheets})
}
