package model

import (
	"strings"
	"time"
	"unicode"
)

// ConductCode is the behaviour mark recorded next to a grade.
type ConductCode string

const (
	ConductExcellent        ConductCode = "Excellent"
	ConductGood             ConductCode = "Good"
	ConductAverage          ConductCode = "Average"
	ConductNeedsImprovement ConductCode = "Needs Improvement"
)

// ConductCodes lists the accepted codes in display order.
var ConductCodes = []ConductCode{
	ConductExcellent,
	ConductGood,
	ConductAverage,
	ConductNeedsImprovement,
}

// ParseConductCode accepts any case or spacing variant ("needs improvement",
// "NeedsImprovement", "needs_improvement") and returns the canonical code.
// An empty string parses to the empty code, which clears the cell.
func ParseConductCode(s string) (ConductCode, bool) {
	key := squash(s)
	if key == "" {
		return "", true
	}
	for _, c := range ConductCodes {
		if squash(string(c)) == key {
			return c, true
		}
	}
	return "", false
}

func squash(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// GradeRecord is one row of the grades worksheet.
type GradeRecord struct {
	// SheetRow is the 1-based row in the store; the header occupies row 1.
	SheetRow       int         `json:"sheet_row"`
	StudentName    string      `json:"student_name"`
	Subject        string      `json:"subject"`
	AssessmentType string      `json:"assessment_type"`
	Term           string      `json:"term"`
	TeacherEmail   string      `json:"teacher_email"`
	Grade          *float64    `json:"grade"`
	ConductCode    ConductCode `json:"conduct_code"`
	CommentText    string      `json:"comment_text"`
	DateSubmitted  string      `json:"date_submitted,omitempty"`
}

// GradeBand buckets a grade for the student dashboard colour legend.
type GradeBand string

const (
	BandNone        GradeBand = "none"        // gray
	BandFailing     GradeBand = "failing"     // red, below 60
	BandBorderline  GradeBand = "borderline"  // orange, 60-69
	BandPassing     GradeBand = "passing"     // green, 70-92
	BandDistinction GradeBand = "distinction" // blue, 93-100
)

// BandFor classifies a grade. A nil grade has no band.
func BandFor(grade *float64) GradeBand {
	switch {
	case grade == nil:
		return BandNone
	case *grade < 60:
		return BandFailing
	case *grade < 70:
		return BandBorderline
	case *grade < 93:
		return BandPassing
	default:
		return BandDistinction
	}
}

// LocateKey identifies a grade record. Empty fields are wildcards.
type LocateKey struct {
	Student        string `json:"student" form:"student" binding:"max=200"`
	Subject        string `json:"subject" form:"subject" binding:"max=200"`
	AssessmentType string `json:"assessment_type" form:"assessment_type" binding:"max=200"`
	Term           string `json:"term" form:"term" binding:"max=200"`
	Teacher        string `json:"teacher" form:"teacher" binding:"max=255"`
}

// IsEmpty reports whether every field is a wildcard.
func (k LocateKey) IsEmpty() bool {
	return strings.TrimSpace(k.Student) == "" &&
		strings.TrimSpace(k.Subject) == "" &&
		strings.TrimSpace(k.AssessmentType) == "" &&
		strings.TrimSpace(k.Term) == "" &&
		strings.TrimSpace(k.Teacher) == ""
}

// LocateRequest is the payload for POST /grades/locate.
type LocateRequest struct {
	Key LocateKey `json:"key"`
}

// UpdateGradeRequest is the payload for PATCH /grades.
// Changes maps an editable field name to its new value.
type UpdateGradeRequest struct {
	Key     LocateKey              `json:"key"`
	Changes map[string]interface{} `json:"changes" binding:"required,min=1"`
}

// CreateGradeRequest is the payload for POST /grades. Values holds the
// initial editable fields under the same names PATCH accepts. Teacher is
// taken from the session for teachers and required from admins.
type CreateGradeRequest struct {
	Student        string                 `json:"student" binding:"required,max=200"`
	Subject        string                 `json:"subject" binding:"required,max=200"`
	AssessmentType string                 `json:"assessment_type" binding:"required,max=200"`
	Term           string                 `json:"term" binding:"required,max=200"`
	Teacher        string                 `json:"teacher" binding:"omitempty,email,max=255"`
	Values         map[string]interface{} `json:"values"`
}

// GradeOptions lists the distinct selector values in the caller's scope.
type GradeOptions struct {
	Students        []string `json:"students"`
	Subjects        []string `json:"subjects"`
	Terms           []string `json:"terms"`
	AssessmentTypes []string `json:"assessment_types"`
	ConductCodes    []string `json:"conduct_codes"`
}

// ReportLine is one subject on the student grade report.
type ReportLine struct {
	Subject string    `json:"subject"`
	Term    string    `json:"term"`
	Grade   *float64  `json:"grade"`
	Band    GradeBand `json:"band"`
}

// StudentReport is the per-student view used by the student and parent dashboards.
type StudentReport struct {
	StudentName    string       `json:"student_name"`
	AssessmentType string       `json:"assessment_type"`
	Lines          []ReportLine `json:"lines"`
	Average        *float64     `json:"average"`
}

// StudentReportQuery is the query string for GET /grades/report.
type StudentReportQuery struct {
	Student        string `form:"student" binding:"max=200"`
	AssessmentType string `form:"assessment_type" binding:"required,max=200"`
}

// LocateResponse is the result of POST /grades/locate.
type LocateResponse struct {
	Index  int         `json:"index"`
	Record GradeRecord `json:"record"`
}

// SheetSummary describes a freshly loaded snapshot.
type SheetSummary struct {
	Worksheet string    `json:"worksheet"`
	Records   int       `json:"records"`
	Students  int       `json:"students"`
	Teachers  int       `json:"teachers"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// GradeListQuery is the query string for GET /grades. ConductCode narrows the
// result to one conduct mark.
type GradeListQuery struct {
	LocateKey
	ConductCode string `form:"conduct_code" binding:"omitempty,conduct_code"`
}
