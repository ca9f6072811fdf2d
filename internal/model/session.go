package model

import "time"

// SessionContext is the per-session state handed to every handler.
// It is created at session start and discarded when the session ends.
type SessionContext struct {
	SessionID   string       `json:"session_id"`
	Role        Role         `json:"role"`
	Email       string       `json:"email,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	Subjects    []string     `json:"subjects,omitempty"`
	StudentName string       `json:"student_name,omitempty"`
	Permissions []Permission `json:"permissions"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// StaffSessionRequest starts a teacher or admin session.
type StaffSessionRequest struct {
	Email      string `json:"email" binding:"required,email,max=255"`
	AccessCode string `json:"access_code" binding:"omitempty,max=128"`
}

// ViewerSessionRequest starts a student or parent session.
type ViewerSessionRequest struct {
	StudentName string `json:"student_name" binding:"required,min=2,max=200"`
	Relation    Role   `json:"relation" binding:"required,oneof=student parent"`
}

// SessionResponse is returned after a session is started.
type SessionResponse struct {
	Token   string         `json:"token"`
	Session SessionContext `json:"session"`
}
