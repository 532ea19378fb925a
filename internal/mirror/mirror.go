// Package mirror keeps the kitchen's own order sheet approximately in sync
// with the authoritative orders store. The kitchen file is externally
// authored: one sheet per class group, date columns placed wherever the
// staff put them. The mirror only writes into cells whose location it has
// already derived and never extends the file's structure. Every failure at
// this boundary is best-effort by contract; the authoritative write has
// already happened.
package mirror

import (
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/EgorSenyagin/foodbot/internal/model"
)

// slotMarks are the single-character slot markers the kitchen reads:
// З завтрак, О обед, П полдник.
var slotMarks = [3]string{"З", "О", "П"}

// Config carries the detection tuning knobs.
type Config struct {
	AnchorScanRows    int
	AnchorFallbackRow int
	ListFallbackRow   int
	MaxDateColumns    int
}

// Mirror is the best-effort secondary replica over the kitchen sheet.
type Mirror struct {
	path string
	cfg  Config

	mu     sync.RWMutex
	layout *Layout

	ownWriteMu sync.Mutex
	ownWrite   bool
}

// New creates a mirror over the kitchen file. Call Load before use; a
// mirror that never loaded simply rejects every update.
func New(path string, cfg Config) *Mirror {
	return &Mirror{path: path, cfg: cfg}
}

// Path returns the watched kitchen file path.
func (m *Mirror) Path() string {
	return m.path
}

// Load re-scans the kitchen file and rebuilds the derived layout for every
// class group. On failure the previous layout (possibly none) stays in
// place and the mirror is treated as stale until the next successful load.
// The write lock covers the whole read: UpdateOrder saves the same file in
// place under m.mu, and a reload must never see a half-written workbook.
func (m *Mirror) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := excelize.OpenFile(m.path)
	if err != nil {
		return fmt.Errorf("open kitchen file: %w", err)
	}
	defer f.Close()

	layout := &Layout{Groups: make(map[string]*GroupLayout)}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		layout.Groups[sheet] = detectGroup(sheet, rows, m.cfg)
	}

	m.layout = layout
	return nil
}

// Layout returns the current derived layout, or nil before the first
// successful load. The returned value is shared; treat it as read-only.
func (m *Mirror) Layout() *Layout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layout
}

// FindStudent resolves a student name to (group sheet, 1-based row) across
// all groups. Matching is case-insensitive and whitespace-trimmed.
func (m *Mirror) FindStudent(name string) (string, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.layout == nil {
		return "", 0, false
	}
	return m.layout.findStudent(name)
}

// UpdateOrder mirrors one (student, date) order state into the kitchen
// sheet: a slot marker per ordered slot, an empty cell otherwise. The whole
// file is rewritten. Resolution failures return ErrGroupNotFound or
// ErrColumnNotFound; the mirror is allowed to lag the orders store.
func (m *Mirror) UpdateOrder(name, dateKey string, set model.MealSet) error {
	dateKey, err := model.NormalizeDateKey(dateKey)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.layout == nil {
		return ErrNotLoaded
	}
	sheet, row, ok := m.layout.findStudent(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	col, ok := m.layout.Groups[sheet].DateColumns[dateKey]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrColumnNotFound, dateKey, sheet)
	}

	f, err := excelize.OpenFile(m.path)
	if err != nil {
		return fmt.Errorf("open kitchen file: %w", err)
	}
	defer f.Close()

	for i, slot := range model.MealSlots {
		cell, err := excelize.CoordinatesToCellName(col+i, row)
		if err != nil {
			return fmt.Errorf("resolve mirror cell: %w", err)
		}
		value := ""
		if set.Get(slot) {
			value = slotMarks[i]
		}
		if err := f.SetCellStr(sheet, cell, value); err != nil {
			return fmt.Errorf("write mirror cell %s: %w", cell, err)
		}
	}

	m.markOwnWrite()
	if err := f.Save(); err != nil {
		return fmt.Errorf("save kitchen file: %w", err)
	}
	return nil
}

// markOwnWrite flags the next file event as our own save so the watcher
// does not reload the layout we just derived.
func (m *Mirror) markOwnWrite() {
	m.ownWriteMu.Lock()
	m.ownWrite = true
	m.ownWriteMu.Unlock()
}

// consumeOwnWrite checks and clears the own-write flag.
func (m *Mirror) consumeOwnWrite() bool {
	m.ownWriteMu.Lock()
	defer m.ownWriteMu.Unlock()
	was := m.ownWrite
	m.ownWrite = false
	return was
}
