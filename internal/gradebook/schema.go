package gradebook

import "github.com/chhs/grades-backend/internal/model"

// Column identifies a logical column of a worksheet, independent of its header text.
type Column string

const (
	ColStudent        Column = "student"
	ColSubject        Column = "subject"
	ColAssessmentType Column = "assessment_type"
	ColTerm           Column = "term"
	ColTeacher        Column = "teacher"
	ColGrade          Column = "grade"
	ColConductCode    Column = "conduct_code"
	ColComment        Column = "comment"
	ColDateSubmitted  Column = "date_submitted"

	ColEmail       Column = "email"
	ColDisplayName Column = "display_name"
	ColSubjects    Column = "subjects"
	ColRole        Column = "role"
)

// ColumnSpec maps a logical column to the header text (and aliases) used in the sheet.
type ColumnSpec struct {
	Column   Column
	Header   string
	Aliases  []string
	Required bool
}

// Schema is the set of columns a worksheet must provide.
type Schema []ColumnSpec

// GradeSchema describes the grades worksheet. Header names follow the school's
// Grades3 workbook; aliases cover the older teacher-entry layout.
var GradeSchema = Schema{
	{Column: ColStudent, Header: "NAME", Aliases: []string{"Student Name", "Student"}, Required: true},
	{Column: ColSubject, Header: "Subject", Required: true},
	{Column: ColAssessmentType, Header: "Assessment Type", Required: true},
	{Column: ColTerm, Header: "Assessment Period", Aliases: []string{"Term", "Term/Period"}, Required: true},
	{Column: ColTeacher, Header: "Teacher", Aliases: []string{"Subject Teacher", "Teacher Email"}, Required: true},
	{Column: ColGrade, Header: "Grade", Required: true},
	{Column: ColConductCode, Header: "Conduct Code", Aliases: []string{"Conduct"}, Required: true},
	{Column: ColComment, Header: "Comments", Aliases: []string{"Comment"}, Required: true},
	{Column: ColDateSubmitted, Header: "Date Submitted"},
}

// TeacherSchema describes the teacher roster worksheet.
var TeacherSchema = Schema{
	{Column: ColEmail, Header: "Email", Required: true},
	{Column: ColDisplayName, Header: "Name", Aliases: []string{"Display Name", "Teacher Name"}, Required: true},
	{Column: ColSubjects, Header: "Subjects", Aliases: []string{"Subject"}, Required: true},
	{Column: ColRole, Header: "Role", Required: true},
}

// fieldColumns maps each editable field to the column it is stored in.
var fieldColumns = map[model.EditableField]Column{
	model.FieldGrade:       ColGrade,
	model.FieldConductCode: ColConductCode,
	model.FieldCommentText: ColComment,
}

// identityColumns are compared by the stale-row check along with the editable ones.
var identityColumns = []Column{ColStudent, ColSubject, ColAssessmentType, ColTerm, ColTeacher}

// Resolve maps every known column to its 0-based position in header. All
// missing required columns are reported in one SchemaError.
func (s Schema) Resolve(worksheet string, header []string) (map[Column]int, error) {
	positions := headerPositions(header)

	cols := make(map[Column]int, len(s))
	var missing []string
	for _, spec := range s {
		idx, ok := spec.lookup(positions)
		if ok {
			cols[spec.Column] = idx
			continue
		}
		if spec.Required {
			missing = append(missing, spec.Header)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Worksheet: worksheet, Missing: missing}
	}
	return cols, nil
}

func (spec ColumnSpec) lookup(positions map[string]int) (int, bool) {
	if idx, ok := positions[normalize(spec.Header)]; ok {
		return idx, true
	}
	for _, alias := range spec.Aliases {
		if idx, ok := positions[normalize(alias)]; ok {
			return idx, true
		}
	}
	return 0, false
}

// ColumnInfo reports where a schema column was found in a header.
type ColumnInfo struct {
	Column   Column `json:"column"`
	Header   string `json:"header"`
	FoundAs  string `json:"found_as,omitempty"`
	Position int    `json:"position"` // 1-based; 0 when absent
	Required bool   `json:"required"`
}

// Describe reports every schema column against header without failing on
// missing ones.
func (s Schema) Describe(header []string) []ColumnInfo {
	positions := headerPositions(header)
	out := make([]ColumnInfo, len(s))
	for i, spec := range s {
		info := ColumnInfo{Column: spec.Column, Header: spec.Header, Required: spec.Required}
		if idx, ok := spec.lookup(positions); ok {
			info.FoundAs = header[idx]
			info.Position = idx + 1
		}
		out[i] = info
	}
	return out
}

func headerPositions(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalize(h)
		if key == "" {
			continue
		}
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}
	return positions
}
