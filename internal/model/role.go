package model

import "strings"

// Role is the session role of a dashboard user.
type Role string

const (
	RoleSubjectTeacher Role = "subject_teacher"
	RoleFormTeacher    Role = "form_teacher"
	RoleAdmin          Role = "admin"
	RoleStudent        Role = "student"
	RoleParent         Role = "parent"
)

// IsStaff reports whether the role comes from the teacher roster.
func (r Role) IsStaff() bool {
	return r == RoleSubjectTeacher || r == RoleFormTeacher || r == RoleAdmin
}

// IsTeacher reports whether the role is scoped to the caller's own rows.
func (r Role) IsTeacher() bool {
	return r == RoleSubjectTeacher || r == RoleFormTeacher
}

// ParseRosterRole maps the Role column of the teacher roster.
// Unrecognised or blank values fall back to subject teacher.
func ParseRosterRole(s string) Role {
	switch strings.ToLower(strings.Join(strings.Fields(s), " ")) {
	case "admin", "administrator":
		return RoleAdmin
	case "form teacher", "form_teacher":
		return RoleFormTeacher
	default:
		return RoleSubjectTeacher
	}
}
