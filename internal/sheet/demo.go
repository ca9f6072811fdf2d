package sheet

import (
	"fmt"
	"math/rand"
	"strconv"
)

var (
	demoStudents = []string{
		"Aaliyah Campbell", "Brandon Williams", "Chantelle Brown", "Damian Reid",
		"Ebony Thompson", "Fabian Clarke", "Gabrielle Morgan", "Horace Bennett",
		"Imani Stewart", "Jaden Grant", "Kadeen Francis", "Latoya Henry",
	}
	demoTeachers = [][]string{
		{"Email", "Name", "Subjects", "Role"},
		{"m.barrett@chhs.edu.jm", "Marcia Barrett", "Mathematics", "Subject Teacher"},
		{"d.lewis@chhs.edu.jm", "Dwayne Lewis", "English Language, Literature", "Form Teacher"},
		{"s.gordon@chhs.edu.jm", "Sandra Gordon", "Biology, Chemistry", "Subject Teacher"},
		{"r.palmer@chhs.edu.jm", "Ricardo Palmer", "History", "Subject Teacher"},
		{"principal@chhs.edu.jm", "Joan Whyte", "", "Admin"},
	}
	demoSubjects = map[string]string{
		"Mathematics":      "m.barrett@chhs.edu.jm",
		"English Language": "d.lewis@chhs.edu.jm",
		"Literature":       "d.lewis@chhs.edu.jm",
		"Biology":          "s.gordon@chhs.edu.jm",
		"Chemistry":        "s.gordon@chhs.edu.jm",
		"History":          "r.palmer@chhs.edu.jm",
	}
	demoSubjectOrder   = []string{"Mathematics", "English Language", "Literature", "Biology", "Chemistry", "History"}
	demoAssessments    = []string{"Midterm", "Final Exam"}
	demoTerms          = []string{"Term 1", "Term 2"}
	demoConduct        = []string{"Excellent", "Good", "Average", "Needs Improvement", ""}
	demoGradeHeader    = []string{"NAME", "Subject", "Assessment Type", "Assessment Period", "Teacher", "Grade", "Conduct Code", "Comments", "Date Submitted"}
	demoCommentsByBand = []string{"Needs extra support", "Keep practising", "Good progress", "Outstanding work"}
)

// DemoWorkbook returns a deterministic demo grades worksheet and teacher roster,
// keyed by worksheet name. Terms run sequentially so the second term of every
// student is left ungraded.
func DemoWorkbook(gradesWorksheet, teachersWorksheet string, seed int64) map[string][][]string {
	r := rand.New(rand.NewSource(seed))

	grades := [][]string{append([]string(nil), demoGradeHeader...)}
	for _, student := range demoStudents {
		for _, subject := range demoSubjectOrder {
			for _, assessment := range demoAssessments {
				for t, term := range demoTerms {
					row := []string{student, subject, assessment, term, demoSubjects[subject], "", "", "", ""}
					if t == 0 {
						g := 45 + r.Intn(56)
						row[5] = strconv.Itoa(g)
						row[6] = demoConduct[r.Intn(len(demoConduct))]
						row[7] = demoCommentsByBand[bandIndex(g)]
						row[8] = fmt.Sprintf("2026-%02d-%02d", 3+r.Intn(2), 1+r.Intn(28))
					}
					grades = append(grades, row)
				}
			}
		}
	}

	teachers := make([][]string, len(demoTeachers))
	for i, row := range demoTeachers {
		teachers[i] = append([]string(nil), row...)
	}

	return map[string][][]string{
		gradesWorksheet:   grades,
		teachersWorksheet: teachers,
	}
}

func bandIndex(g int) int {
	switch {
	case g < 60:
		return 0
	case g < 70:
		return 1
	case g < 93:
		return 2
	default:
		return 3
	}
}

// ToCells converts string rows for WriteWorkbook, storing integers as numbers.
func ToCells(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			if n, err := strconv.Atoi(v); err == nil && i > 0 {
				cells[j] = n
				continue
			}
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
