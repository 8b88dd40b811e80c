// Package dateutils provides date handling for mBank statement fields.
package dateutils

import (
	"strings"
	"time"
)

// Date layouts appearing in mBank exports.
const (
	DateLayoutISO    = "2006-01-02"
	DateLayoutPolish = "02.01.2006"
)

// ParseStatementDate parses a date cell from a statement. Only the ISO
// (2025-08-01) and dotted Polish (01.08.2025) forms are accepted; anything
// else yields nil, which the caller records as a missing date rather than
// an error.
func ParseStatementDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var layout string
	switch {
	case strings.Contains(s, "-"):
		layout = DateLayoutISO
	case strings.Contains(s, "."):
		layout = DateLayoutPolish
	default:
		return nil
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	return &t
}

// ToISODate renders a date in the ISO form used inside row digests and
// log output.
func ToISODate(t time.Time) string {
	return t.Format(DateLayoutISO)
}
