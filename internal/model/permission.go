package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionGradesRead allows viewing grade records in the caller's scope.
	PermissionGradesRead Permission = "grades:read"

	// PermissionGradesWrite allows locating and updating editable grade fields.
	PermissionGradesWrite Permission = "grades:write"

	// PermissionAuditRead allows viewing the grade change audit log.
	PermissionAuditRead Permission = "audit:read"

	// PermissionSheetAdmin allows refreshing the snapshot and inspecting the sheet schema.
	PermissionSheetAdmin Permission = "sheet:admin"
)

// PermissionsFor returns the permissions granted to a role.
func PermissionsFor(role Role) []Permission {
	switch role {
	case RoleAdmin:
		return []Permission{PermissionGradesRead, PermissionGradesWrite, PermissionAuditRead, PermissionSheetAdmin}
	case RoleSubjectTeacher, RoleFormTeacher:
		return []Permission{PermissionGradesRead, PermissionGradesWrite}
	case RoleStudent, RoleParent:
		return []Permission{PermissionGradesRead}
	default:
		return nil
	}
}
