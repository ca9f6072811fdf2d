package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/gradebook"
	"github.com/chhs/grades-backend/internal/response"
	"github.com/chhs/grades-backend/internal/service"
	"github.com/chhs/grades-backend/internal/sheet"
)

// failGrade maps grade service errors onto the response envelope.
func failGrade(c *gin.Context, err error) {
	var (
		verr *gradebook.ValidationError
		amb  *gradebook.AmbiguousError
		perr *gradebook.PartialFailureError
		serr *gradebook.SchemaError
	)

	switch {
	case errors.Is(err, service.ErrOutOfScope):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrReadOnly):
		response.Fail(c, http.StatusForbidden, response.ErrReadOnly)
	case errors.Is(err, service.ErrStudentRequired):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"student": "student is required",
		})
	case errors.Is(err, service.ErrTeacherRequired):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"teacher": "teacher is required",
		})
	case errors.Is(err, service.ErrUnknownTeacher):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownTeacher)
	case errors.Is(err, service.ErrCannotAppend):
		response.Fail(c, http.StatusNotImplemented, response.ErrSheetReadOnly)

	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			fields[f.Field] = f.Err.Error()
		}
		response.FailWithFields(c, http.StatusBadRequest, validationCode(err), fields)

	case errors.As(err, &amb):
		response.FailWithDetails(c, http.StatusConflict, response.ErrAmbiguousRecord, gin.H{
			"indexes":    amb.Matches,
			"sheet_rows": amb.SheetRows,
		})
	case errors.Is(err, gradebook.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrRecordNotFound)
	case errors.Is(err, gradebook.ErrStaleRow):
		response.Fail(c, http.StatusConflict, response.ErrStaleRecord)
	case errors.Is(err, gradebook.ErrDuplicate):
		response.Fail(c, http.StatusConflict, response.ErrRecordExists)

	case errors.As(err, &perr):
		logError(c, err, "Grade update stopped partway")
		response.FailWithDetails(c, http.StatusBadGateway, response.ErrWriteFailed, gin.H{
			"written": nonNil(perr.Written),
			"failed":  nonNil(perr.Failed),
			"pending": nonNil(perr.Pending),
		})
	case errors.Is(err, gradebook.ErrWrite):
		logError(c, err, "Grade write failed")
		response.Fail(c, http.StatusBadGateway, response.ErrWriteFailed)

	case errors.As(err, &serr):
		logError(c, err, "Sheet schema mismatch")
		response.FailWithDetails(c, http.StatusInternalServerError, response.ErrSchema, gin.H{
			"worksheet": serr.Worksheet,
			"missing":   serr.Missing,
		})
	case errors.Is(err, sheet.ErrWorksheetNotFound):
		logError(c, err, "Worksheet missing")
		response.Fail(c, http.StatusInternalServerError, response.ErrSchema)

	default:
		logError(c, err, "Grade request failed")
		response.Fail(c, http.StatusBadGateway, response.ErrSheetUnavailable)
	}
}

// validationCode picks the most specific code among the rejected fields.
func validationCode(err error) response.ErrCode {
	switch {
	case errors.Is(err, gradebook.ErrInvalidField):
		return response.ErrInvalidField
	case errors.Is(err, gradebook.ErrOutOfRange):
		return response.ErrOutOfRange
	default:
		return response.ErrInvalidValue
	}
}

func logError(c *gin.Context, err error, msg string) {
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg(msg)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
