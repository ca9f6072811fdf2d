package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditStatus is the outcome of one attempted cell write.
type AuditStatus string

const (
	AuditWritten AuditStatus = "written"
	AuditFailed  AuditStatus = "failed"
)

// AuditEntry records one attempted field write of an update cycle.
type AuditEntry struct {
	ID             int64         `json:"id"`
	CycleID        uuid.UUID     `json:"cycle_id"`
	Worksheet      string        `json:"worksheet"`
	SheetRow       int           `json:"sheet_row"`
	StudentName    string        `json:"student_name"`
	Subject        string        `json:"subject"`
	AssessmentType string        `json:"assessment_type"`
	Term           string        `json:"term"`
	Field          EditableField `json:"field"`
	OldValue       string        `json:"old_value"`
	NewValue       string        `json:"new_value"`
	Status         AuditStatus   `json:"status"`
	ActorEmail     string        `json:"actor_email"`
	CreatedAt      time.Time     `json:"created_at"`
}

// AuditFilter narrows the audit listing.
type AuditFilter struct {
	Student string `form:"student" binding:"max=200"`
	Actor   string `form:"actor" binding:"max=255"`
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// GradeChangedEvent is published after an update cycle writes at least one
// field, or after a record is created.
type GradeChangedEvent struct {
	CycleID     uuid.UUID       `json:"cycle_id"`
	Worksheet   string          `json:"worksheet"`
	SheetRow    int             `json:"sheet_row"`
	StudentName string          `json:"student_name"`
	Subject     string          `json:"subject"`
	Teacher     string          `json:"teacher"`
	Fields      []EditableField `json:"fields"`
	ActorEmail  string          `json:"actor_email"`
	Created     bool            `json:"created,omitempty"`
	At          time.Time       `json:"at"`
}
