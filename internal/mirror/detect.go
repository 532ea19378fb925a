package mirror

import (
	"strings"
	"time"

	"github.com/EgorSenyagin/foodbot/internal/model"
)

// The kitchen sheet layout is chosen by the canteen staff, not by this
// service, so every position is detected rather than assumed. Columns are
// 0-based here; layouts store 1-based positions for excelize addressing.
const (
	dateScanCol    = 2 // column C: the anchor scan looks here for the first date
	tripleStartCol = 2 // column C: date column triples begin at the anchor
	sentinelCol    = 0 // column A: student list sentinel and names
)

// listSentinels mark the row right above the student list.
var listSentinels = []string{"ФИО", "Ученик"}

// totalPrefixes end the student list when a summary row begins.
var totalPrefixes = []string{"Итого", "Всего"}

// dateLayouts are the date shapes canteen staff actually type, plus the
// shape excelize renders for native date cells.
var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	"2006-01-02",
	"01-02-06",
}

// parseDateCell recognizes a cell value as a calendar date and returns its
// canonical date key.
func parseDateCell(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// Two-digit years before 1970 are misreads, not school dates.
		if t.Year() < 1970 {
			continue
		}
		return model.DateKeyOf(t), true
	}
	return "", false
}

// detectGroup derives the layout of one class-group sheet. Detection is
// two-phase: locate the anchors first, then parse the date map and the
// student list from them. It never fails; each anchor independently falls
// back to its configured default row when the scan finds nothing.
func detectGroup(sheet string, rows [][]string, cfg Config) *GroupLayout {
	g := &GroupLayout{
		Sheet:       sheet,
		DateColumns: make(map[string]int),
		Students:    make(map[string]int),
	}

	g.Anchor = detectAnchorRow(rows, cfg)
	g.ListStart = detectListStart(rows, cfg)

	parseDateColumns(g, rows, cfg)
	parseStudentList(g, rows)

	return g
}

// detectAnchorRow scans the first AnchorScanRows rows of the date-scan
// column for a date-shaped value. The first hit is the anchor.
func detectAnchorRow(rows [][]string, cfg Config) RowMark {
	limit := cfg.AnchorScanRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for r := 0; r < limit; r++ {
		if _, ok := parseDateCell(cell(rows, r, dateScanCol)); ok {
			return RowMark{Row: r + 1}
		}
	}
	return RowMark{Row: cfg.AnchorFallbackRow, Fallback: true}
}

// detectListStart scans the sentinel column for a known list label; the
// student list starts on the row after it.
func detectListStart(rows [][]string, cfg Config) RowMark {
	for r := 0; r < len(rows); r++ {
		v := cell(rows, r, sentinelCol)
		for _, s := range listSentinels {
			if strings.EqualFold(v, s) {
				return RowMark{Row: r + 2}
			}
		}
	}
	return RowMark{Row: cfg.ListFallbackRow, Fallback: true}
}

// parseDateColumns walks columns in triples from the anchor row. A triple
// is accepted when its date cell parses; the two slot columns after it need
// no validation. A column that is not a date advances the walk by one
// column, not three, to tolerate irregular spacing between groups of dates.
func parseDateColumns(g *GroupLayout, rows [][]string, cfg Config) {
	r := g.Anchor.Row - 1
	if r < 0 || r >= len(rows) {
		return
	}
	anchorRow := rows[r]

	width := len(anchorRow)
	if max := tripleStartCol + cfg.MaxDateColumns; width > max {
		width = max
	}

	for c := tripleStartCol; c < width; {
		key, ok := parseDateCell(cell(rows, r, c))
		if !ok {
			c++
			continue
		}
		// First triple wins when staff duplicate a date.
		if _, dup := g.DateColumns[key]; !dup {
			g.DateColumns[key] = c + 1
		}
		c += 3
	}
}

// parseStudentList accumulates names from the list start until a blank row
// or a totals row.
func parseStudentList(g *GroupLayout, rows [][]string) {
	for r := g.ListStart.Row - 1; r < len(rows); r++ {
		name := cell(rows, r, sentinelCol)
		if name == "" {
			return
		}
		if hasAnyPrefix(name, totalPrefixes) {
			return
		}
		key := normalizeName(name)
		if _, dup := g.Students[key]; !dup {
			g.Students[key] = r + 1
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func cell(rows [][]string, r, c int) string {
	if r < 0 || r >= len(rows) {
		return ""
	}
	row := rows[r]
	if c < 0 || c >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[c])
}
