package gradebook

import (
	"strings"

	"github.com/chhs/grades-backend/internal/model"
)

// Roster is the teacher roster, indexed by normalised email.
type Roster struct {
	Teachers []model.TeacherRecord
	byEmail  map[string]int
}

// LoadTeachers parses the roster worksheet. Rows without an email are skipped.
func LoadTeachers(worksheet string, rows [][]string) (*Roster, error) {
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	cols, err := TeacherSchema.Resolve(worksheet, header)
	if err != nil {
		return nil, err
	}

	r := &Roster{byEmail: make(map[string]int)}
	for i := 1; i < len(rows); i++ {
		cells := pad(rows[i], len(header))
		email := strings.TrimSpace(cells[cols[ColEmail]])
		if email == "" {
			continue
		}
		t := model.TeacherRecord{
			SheetRow:    i + 1,
			Email:       email,
			DisplayName: strings.TrimSpace(cells[cols[ColDisplayName]]),
			Subjects:    splitList(cells[cols[ColSubjects]]),
			Role:        model.ParseRosterRole(cells[cols[ColRole]]),
		}
		key := normalize(email)
		if _, dup := r.byEmail[key]; dup {
			continue
		}
		r.byEmail[key] = len(r.Teachers)
		r.Teachers = append(r.Teachers, t)
	}
	return r, nil
}

// Lookup finds a teacher by email, ignoring case and surrounding whitespace.
func (r *Roster) Lookup(email string) (model.TeacherRecord, bool) {
	idx, ok := r.byEmail[normalize(email)]
	if !ok {
		return model.TeacherRecord{}, false
	}
	return r.Teachers[idx], true
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
