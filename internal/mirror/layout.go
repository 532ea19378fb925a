package mirror

import (
	"regexp"
	"strings"
)

// RowMark is the position a detection step settled on, plus which branch
// produced it: a genuine hit or the documented fallback. Tests and the
// status endpoint assert on the branch directly instead of inferring it
// from side effects.
type RowMark struct {
	Row      int  `json:"row"` // 1-based
	Fallback bool `json:"fallback"`
}

// GroupLayout is the derived structure of one class group (one sheet) of
// the kitchen file. It is rebuilt on every load and is allowed to be wrong
// or incomplete; nothing here is authoritative.
type GroupLayout struct {
	Sheet string `json:"sheet"`

	Anchor    RowMark `json:"anchor"`    // row where date columns begin
	ListStart RowMark `json:"listStart"` // first row of the student list

	// DateColumns maps canonical date keys to the 1-based first column of
	// the date's triple.
	DateColumns map[string]int `json:"dateColumns"`

	// Students maps normalized student names to their 1-based row.
	Students map[string]int `json:"students"`
}

// Layout is the derived structure of the whole kitchen file.
type Layout struct {
	Groups map[string]*GroupLayout `json:"groups"`
}

var nameSpaceRe = regexp.MustCompile(`\s+`)

// normalizeName folds a student name for case-insensitive, whitespace-
// tolerant exact matching.
func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = nameSpaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// findStudent resolves a name across all groups. Returns the group's sheet
// name and the 1-based row.
func (l *Layout) findStudent(name string) (string, int, bool) {
	key := normalizeName(name)
	if key == "" {
		return "", 0, false
	}
	for sheet, g := range l.Groups {
		if row, ok := g.Students[key]; ok {
			return sheet, row, true
		}
	}
	return "", 0, false
}
