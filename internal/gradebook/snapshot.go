package gradebook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chhs/grades-backend/internal/model"
)

// Snapshot is an in-memory copy of the grades worksheet at one point in time.
// Records keep their sheet row so a record index maps to exactly one store row.
type Snapshot struct {
	Worksheet string
	Header    []string
	Records   []model.GradeRecord
	LoadedAt  time.Time

	columns map[Column]int
	cells   [][]string // raw cells per record, padded to the header width
}

// LoadGrades builds a snapshot from a bulk read (header row first). The header is
// validated against GradeSchema before any row is parsed. Fully blank rows are
// skipped but still count toward sheet row numbering.
func LoadGrades(worksheet string, rows [][]string) (*Snapshot, error) {
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	cols, err := GradeSchema.Resolve(worksheet, header)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Worksheet: worksheet,
		Header:    append([]string(nil), header...),
		LoadedAt:  time.Now().UTC(),
		columns:   cols,
	}

	for i := 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		cells := pad(rows[i], len(header))
		snap.Records = append(snap.Records, recordFromCells(cols, cells, i+1))
		snap.cells = append(snap.cells, cells)
	}
	return snap, nil
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// SheetRow maps a record index to its 1-based store row.
func (s *Snapshot) SheetRow(index int) (int, error) {
	if index < 0 || index >= len(s.Records) {
		return 0, fmt.Errorf("record index %d out of range [0,%d)", index, len(s.Records))
	}
	return s.Records[index].SheetRow, nil
}

// ColumnNumber returns the 1-based store column of c, or 0 when the worksheet lacks it.
func (s *Snapshot) ColumnNumber(c Column) int {
	idx, ok := s.columns[c]
	if !ok {
		return 0
	}
	return idx + 1
}

// ColumnHeaders reports the header text each resolved column was found under.
func (s *Snapshot) ColumnHeaders() map[Column]string {
	out := make(map[Column]string, len(s.columns))
	for c, idx := range s.columns {
		out[c] = s.Header[idx]
	}
	return out
}

// Row lays rec out as store cells in this snapshot's column order. Columns
// outside the schema stay empty and a nil grade leaves its cell blank.
func (s *Snapshot) Row(rec model.GradeRecord) []interface{} {
	row := make([]interface{}, len(s.Header))
	for i := range row {
		row[i] = ""
	}
	set := func(c Column, v interface{}) {
		if idx, ok := s.columns[c]; ok {
			row[idx] = v
		}
	}
	set(ColStudent, rec.StudentName)
	set(ColSubject, rec.Subject)
	set(ColAssessmentType, rec.AssessmentType)
	set(ColTerm, rec.Term)
	set(ColTeacher, rec.TeacherEmail)
	if rec.Grade != nil {
		set(ColGrade, int(*rec.Grade))
	}
	set(ColConductCode, string(rec.ConductCode))
	set(ColComment, rec.CommentText)
	set(ColDateSubmitted, rec.DateSubmitted)
	return row
}

// cell returns the raw cell of record index in column c.
func (s *Snapshot) cell(index int, c Column) string {
	idx, ok := s.columns[c]
	if !ok {
		return ""
	}
	return s.cells[index][idx]
}

// apply records a successful write so later diffs see the new value.
func (s *Snapshot) apply(index int, field model.EditableField, value interface{}) {
	col := fieldColumns[field]
	idx, ok := s.columns[col]
	if !ok {
		return
	}
	rec := &s.Records[index]
	switch field {
	case model.FieldGrade:
		g := float64(value.(int))
		rec.Grade = &g
		s.cells[index][idx] = strconv.Itoa(value.(int))
	case model.FieldConductCode:
		rec.ConductCode = model.ConductCode(value.(string))
		s.cells[index][idx] = string(rec.ConductCode)
	case model.FieldCommentText:
		rec.CommentText = value.(string)
		s.cells[index][idx] = rec.CommentText
	}
}

func recordFromCells(cols map[Column]int, cells []string, sheetRow int) model.GradeRecord {
	get := func(c Column) string {
		idx, ok := cols[c]
		if !ok {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	rec := model.GradeRecord{
		SheetRow:       sheetRow,
		StudentName:    get(ColStudent),
		Subject:        get(ColSubject),
		AssessmentType: get(ColAssessmentType),
		Term:           get(ColTerm),
		TeacherEmail:   get(ColTeacher),
		CommentText:    get(ColComment),
		DateSubmitted:  get(ColDateSubmitted),
	}
	rec.Grade = parseGrade(get(ColGrade))
	if code, ok := model.ParseConductCode(get(ColConductCode)); ok {
		rec.ConductCode = code
	} else {
		// Keep unrecognised text visible rather than silently dropping it.
		rec.ConductCode = model.ConductCode(get(ColConductCode))
	}
	return rec
}

// parseGrade reads a numeric cell. Blank or non-numeric cells have no grade.
func parseGrade(s string) *float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return nil
	}
	g, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &g
}

func formatGrade(g *float64) string {
	if g == nil {
		return ""
	}
	return strconv.FormatFloat(*g, 'f', -1, 64)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return append([]string(nil), row...)
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
