package gradebook

import (
	"sort"
	"strings"

	"github.com/chhs/grades-backend/internal/model"
)

// Locate returns the index of the single record matching key. Matching is
// trimmed, case-folded equality on every non-empty key field. Zero matches is
// ErrNotFound; more than one is an *AmbiguousError and no index is chosen.
func Locate(records []model.GradeRecord, key model.LocateKey) (int, error) {
	matches := Filter(records, key)
	switch len(matches) {
	case 0:
		return -1, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		rows := make([]int, len(matches))
		for i, m := range matches {
			rows[i] = records[m].SheetRow
		}
		return -1, &AmbiguousError{Matches: matches, SheetRows: rows}
	}
}

// Filter returns the indexes of every record matching key, in snapshot order.
func Filter(records []model.GradeRecord, key model.LocateKey) []int {
	preds := predicates(key)
	var out []int
	for i := range records {
		if matchAll(&records[i], preds) {
			out = append(out, i)
		}
	}
	return out
}

// Matches reports whether a single record satisfies key.
func Matches(rec model.GradeRecord, key model.LocateKey) bool {
	return matchAll(&rec, predicates(key))
}

type predicate struct {
	value string
	field func(*model.GradeRecord) string
}

func predicates(key model.LocateKey) []predicate {
	var preds []predicate
	add := func(v string, field func(*model.GradeRecord) string) {
		if n := normalize(v); n != "" {
			preds = append(preds, predicate{value: n, field: field})
		}
	}
	add(key.Student, func(r *model.GradeRecord) string { return r.StudentName })
	add(key.Subject, func(r *model.GradeRecord) string { return r.Subject })
	add(key.AssessmentType, func(r *model.GradeRecord) string { return r.AssessmentType })
	add(key.Term, func(r *model.GradeRecord) string { return r.Term })
	add(key.Teacher, func(r *model.GradeRecord) string { return r.TeacherEmail })
	return preds
}

func matchAll(rec *model.GradeRecord, preds []predicate) bool {
	for _, p := range preds {
		if normalize(p.field(rec)) != p.value {
			return false
		}
	}
	return true
}

// Distinct returns the sorted distinct non-blank values of a column across
// the given record indexes. Values differing only by case collapse to the
// first spelling seen.
func Distinct(records []model.GradeRecord, indexes []int, c Column) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, i := range indexes {
		v := columnValue(&records[i], c)
		if strings.TrimSpace(v) == "" {
			continue
		}
		n := normalize(v)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func columnValue(r *model.GradeRecord, c Column) string {
	switch c {
	case ColStudent:
		return r.StudentName
	case ColSubject:
		return r.Subject
	case ColAssessmentType:
		return r.AssessmentType
	case ColTerm:
		return r.Term
	case ColTeacher:
		return r.TeacherEmail
	case ColConductCode:
		return string(r.ConductCode)
	case ColComment:
		return r.CommentText
	case ColGrade:
		return formatGrade(r.Grade)
	default:
		return ""
	}
}

// IdentityKey returns the fully specified lookup key of rec.
func IdentityKey(rec model.GradeRecord) model.LocateKey {
	return model.LocateKey{
		Student:        rec.StudentName,
		Subject:        rec.Subject,
		AssessmentType: rec.AssessmentType,
		Term:           rec.Term,
		Teacher:        rec.TeacherEmail,
	}
}
