package gradebook

import (
	"strings"

	"golang.org/x/text/cases"
)

// normalize trims and case-folds a key or header value. A Caser is not safe
// for concurrent use, so one is built per call.
func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// EqualText reports whether a and b match under lookup normalisation.
func EqualText(a, b string) bool {
	return normalize(a) == normalize(b)
}
