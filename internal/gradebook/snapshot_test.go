package gradebook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chhs/grades-backend/internal/model"
)

func TestLoadGradesParsesRecords(t *testing.T) {
	snap, err := LoadGrades(worksheet, gradeRows(
		[]string{"Ama Boateng", "Math", "Exam", "Term 1", "mr.k@chhs.edu", "70", "good", "Solid work"},
		[]string{"John Doe", "Science", "Marksheet 1", "Term 1", "ms.a@chhs.edu", "", "Needs Improvement"},
	))
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())

	ama := snap.Records[0]
	assert.Equal(t, 2, ama.SheetRow)
	require.NotNil(t, ama.Grade)
	assert.Equal(t, 70.0, *ama.Grade)
	assert.Equal(t, model.ConductGood, ama.ConductCode)
	assert.Equal(t, "Solid work", ama.CommentText)

	john := snap.Records[1]
	assert.Nil(t, john.Grade)
	assert.Equal(t, model.ConductNeedsImprovement, john.ConductCode)
	assert.Equal(t, "", john.CommentText)
}

func TestSnapshotRowFollowsHeaderOrder(t *testing.T) {
	rows := [][]string{
		{"Teacher", "NAME", "Notes", "Subject", "Assessment Type", "Assessment Period", "Comments", "Conduct Code", "Grade"},
	}
	snap, err := LoadGrades(worksheet, rows)
	require.NoError(t, err)

	grade := 81.0
	row := snap.Row(model.GradeRecord{
		StudentName:    "Kofi Mensah",
		Subject:        "Math",
		AssessmentType: "Exam",
		Term:           "Term 2",
		TeacherEmail:   "k@chhs.edu",
		Grade:          &grade,
		ConductCode:    model.ConductExcellent,
		CommentText:    "=SUM(A1:A9)",
		DateSubmitted:  "2026-10-19",
	})
	assert.Equal(t, []interface{}{
		"k@chhs.edu", "Kofi Mensah", "", "Math", "Exam", "Term 2", "=SUM(A1:A9)", "Excellent", 81,
	}, row)

	blank := snap.Row(model.GradeRecord{StudentName: "Ama Boateng"})
	assert.Equal(t, "", blank[8])
}

func TestLoadGradesKeepsRowNumberingAcrossBlankRows(t *testing.T) {
	snap, err := LoadGrades(worksheet, gradeRows(
		[]string{"Ama Boateng", "Math", "Exam", "Term 1", "t@chhs.edu", "70"},
		[]string{"", "  ", ""},
		[]string{"Kofi Mensah", "Math", "Exam", "Term 1", "t@chhs.edu", "64"},
	))
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())

	row, err := snap.SheetRow(0)
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	row, err = snap.SheetRow(1)
	require.NoError(t, err)
	assert.Equal(t, 4, row)

	_, err = snap.SheetRow(2)
	assert.Error(t, err)
}

func TestLoadGradesAcceptsHeaderAliases(t *testing.T) {
	rows := [][]string{
		{" name ", "SUBJECT", "Assessment Type", "Term", "Subject Teacher", "Grade", "Conduct", "Comment", "Date Submitted"},
		{"Ama Boateng", "Math", "Exam", "Term 1", "t@chhs.edu", "88", "", "", "2025-01-10 09:00:00"},
	}
	snap, err := LoadGrades(worksheet, rows)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.ColumnNumber(ColTerm))
	assert.Equal(t, 5, snap.ColumnNumber(ColTeacher))
	assert.Equal(t, "2025-01-10 09:00:00", snap.Records[0].DateSubmitted)
	assert.Equal(t, "Subject Teacher", snap.ColumnHeaders()[ColTeacher])
}

func TestLoadGradesMissingColumnsIsSchemaError(t *testing.T) {
	_, err := LoadGrades(worksheet, [][]string{{"NAME", "Subject", "Grade"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))

	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, []string{"Assessment Type", "Assessment Period", "Teacher", "Conduct Code", "Comments"}, serr.Missing)
}

func TestLoadGradesEmptySheetIsSchemaError(t *testing.T) {
	_, err := LoadGrades(worksheet, nil)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestLoadTeachers(t *testing.T) {
	roster, err := LoadTeachers("Teachers", [][]string{
		{"Email", "Name", "Subjects", "Role"},
		{"Mr.K@chhs.edu", "Mr. Kwame", "Math, Physics", "Subject Teacher"},
		{"", "Nobody", "", ""},
		{"head@chhs.edu", "Head", "", "Administrator"},
		{"mr.k@chhs.edu", "Duplicate", "Art", "Form Teacher"},
	})
	require.NoError(t, err)
	require.Len(t, roster.Teachers, 2)

	k, ok := roster.Lookup("  mr.k@CHHS.edu ")
	require.True(t, ok)
	assert.Equal(t, "Mr. Kwame", k.DisplayName)
	assert.Equal(t, []string{"Math", "Physics"}, k.Subjects)
	assert.Equal(t, model.RoleSubjectTeacher, k.Role)

	head, ok := roster.Lookup("head@chhs.edu")
	require.True(t, ok)
	assert.Equal(t, model.RoleAdmin, head.Role)

	_, ok = roster.Lookup("ghost@chhs.edu")
	assert.False(t, ok)
}
