package model

import (
	"fmt"
	"strings"
	"time"
)

// DateKeyLayout is the canonical form of a DateKey: ISO calendar date.
// Every store keys its date columns by this string; distinct keys sort
// chronologically as plain strings.
const DateKeyLayout = "2006-01-02"

// NormalizeDateKey trims the input and verifies it is a canonical
// calendar date. Returns the normalized key.
func NormalizeDateKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateKeyLayout, s)
	// time.Parse tolerates single-digit months and days; the canonical form
	// does not, since keys are compared and sorted as strings.
	if err != nil || t.Format(DateKeyLayout) != s {
		return "", fmt.Errorf("invalid date key %q", s)
	}
	return s, nil
}

// ParseDateKey converts a canonical DateKey into a time.Time at midnight UTC.
func ParseDateKey(s string) (time.Time, error) {
	return time.Parse(DateKeyLayout, strings.TrimSpace(s))
}

// DateKeyOf formats a point in time as the DateKey of its calendar day.
func DateKeyOf(t time.Time) string {
	return t.Format(DateKeyLayout)
}
