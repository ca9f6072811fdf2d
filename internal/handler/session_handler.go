package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chhs/grades-backend/internal/middleware"
	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/response"
	"github.com/chhs/grades-backend/internal/service"
	"github.com/chhs/grades-backend/internal/validator"
)

// SessionHandler handles session start, inspection and end.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// StartStaff godoc
// POST /api/v1/auth/session
// Opens a teacher or admin session for an email on the teacher roster.
func (h *SessionHandler) StartStaff(c *gin.Context) {
	var req model.StaffSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessions.StartStaff(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failGrade(c, err)
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// StartViewer godoc
// POST /api/v1/auth/viewer
// Opens a read-only student or parent session scoped to one student.
func (h *SessionHandler) StartViewer(c *gin.Context) {
	var req model.ViewerSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessions.StartViewer(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrStudentNotFound)
			return
		}
		failGrade(c, err)
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// Me godoc
// GET /api/v1/auth/me
// Returns the session context of the caller.
func (h *SessionHandler) Me(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// End godoc
// DELETE /api/v1/auth/session
// Ends the caller's session; its token stops working immediately.
func (h *SessionHandler) End(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessions.End(c.Request.Context(), claims.ID); err != nil {
		logError(c, err, "End session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
