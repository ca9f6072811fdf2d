package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chhs/grades-backend/internal/gradebook"
	"github.com/chhs/grades-backend/internal/middleware"
	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/response"
	"github.com/chhs/grades-backend/internal/service"
	"github.com/chhs/grades-backend/internal/validator"
)

// GradeHandler serves the grade dashboards and the locate/update protocol.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler creates a new GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// GET /api/v1/grades
// Lists grade records matching the query, limited to the caller's scope.
func (h *GradeHandler) List(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.GradeListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	records, err := h.grades.List(c.Request.Context(), sess, q)
	if err != nil {
		failGrade(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"records": records, "total": len(records)})
}

// Options godoc
// GET /api/v1/grades/options
// Returns selector values (students, subjects, terms, assessment types) in scope.
func (h *GradeHandler) Options(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	opts, err := h.grades.Options(c.Request.Context(), sess)
	if err != nil {
		failGrade(c, err)
		return
	}

	response.Success(c, http.StatusOK, opts)
}

// Report godoc
// GET /api/v1/grades/report
// Returns one student's grades for an assessment type with colour bands.
func (h *GradeHandler) Report(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.StudentReportQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	report, err := h.grades.Report(c.Request.Context(), sess, q)
	if err != nil {
		failGrade(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// Locate godoc
// POST /api/v1/grades/locate
// Resolves a lookup key to exactly one record. More than one match is a 409.
func (h *GradeHandler) Locate(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.LocateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.grades.Locate(c.Request.Context(), sess, req.Key)
	if err != nil {
		failGrade(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Update godoc
// PATCH /api/v1/grades
// Locates a record and writes the editable fields whose value changed.
func (h *GradeHandler) Update(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.UpdateGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.grades.Update(c.Request.Context(), sess, req)
	if err != nil {
		failGrade(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result":  res,
		"updated": res.State == gradebook.StateDone && len(res.Written) > 0,
	})
}

// Create godoc
// POST /api/v1/grades
// Adds a grade record below the last sheet row.
func (h *GradeHandler) Create(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.grades.Create(c.Request.Context(), sess, req)
	if err != nil {
		failGrade(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"record": rec})
}
