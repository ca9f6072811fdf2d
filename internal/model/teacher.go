package model

// TeacherRecord is one row of the teacher roster worksheet. It is read-only.
type TeacherRecord struct {
	SheetRow    int      `json:"-"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Subjects    []string `json:"subjects"`
	Role        Role     `json:"role"`
}
