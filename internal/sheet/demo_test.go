package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoWorkbookIsDeterministic(t *testing.T) {
	a := DemoWorkbook("Sheet1", "Teachers", 7)
	b := DemoWorkbook("Sheet1", "Teachers", 7)
	assert.Equal(t, a, b)

	grades := a["Sheet1"]
	// 12 students, 6 subjects, 2 assessments, 2 terms, plus the header.
	require.Len(t, grades, 1+12*6*2*2)
	assert.Equal(t, "NAME", grades[0][0])

	for _, row := range grades[1:] {
		if row[3] == "Term 2" {
			assert.Empty(t, row[5], "term 2 is ungraded")
		} else {
			assert.NotEmpty(t, row[5])
		}
	}
	assert.Len(t, a["Teachers"], 6)
}

func TestToCellsKeepsHeaderText(t *testing.T) {
	cells := ToCells([][]string{
		{"NAME", "2026"},
		{"Alice", "78"},
	})
	assert.Equal(t, "2026", cells[0][1])
	assert.Equal(t, 78, cells[1][1])
	assert.Equal(t, "Alice", cells[1][0])
}
