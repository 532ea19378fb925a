package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/EgorSenyagin/foodbot/internal/model"
)

const (
	ordersSheet = "Заказы"

	// orderMarker is the true-marker of orders.xlsx flag cells. The kitchen
	// mirror uses its own per-slot letters; the two files deliberately do
	// not share a marker alphabet.
	orderMarker = "+"

	// fixedColumns are id, name, group; date triples start after them.
	fixedColumns = 3
)

// slotSuffixes are the header suffixes of one date's column triple, in
// model.MealSlots order. A date column group is always created whole and
// never reordered or removed.
var slotSuffixes = [3]string{"_A", "_B", "_C"}

// Orders is the authoritative per-(student, date) order store backed by
// orders.xlsx. Columns are dates (three per date), rows are students; both
// grow on demand and only ever by appending. Every operation is a full
// read-modify-write of the file under the store's own lock.
type Orders struct {
	path string
	dir  *Directory
	mu   sync.RWMutex
}

// NewOrders opens the orders store, creating an empty orders file (header
// row only) when none exists yet.
func NewOrders(path string, dir *Directory) (*Orders, error) {
	o := &Orders{path: path, dir: dir}
	if err := o.ensureFile(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Orders) ensureFile() error {
	if _, err := os.Stat(o.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat orders file: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(defaultSheet, ordersSheet); err != nil {
		return fmt.Errorf("init orders sheet: %w", err)
	}

	header := []interface{}{"id", "name", "group"}
	if err := f.SetSheetRow(ordersSheet, "A1", &header); err != nil {
		return fmt.Errorf("write orders header: %w", err)
	}
	if err := f.SaveAs(o.path); err != nil {
		return fmt.Errorf("create orders file: %w", err)
	}
	return nil
}

// Flags returns the order state for one (student, date) pair. A student or
// date the file has never seen reads as nothing-ordered; missing is a valid
// state here, not a fault.
func (o *Orders) Flags(studentID, dateKey string) (model.MealSet, error) {
	dateKey, err := model.NormalizeDateKey(dateKey)
	if err != nil {
		return model.MealSet{}, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	f, err := excelize.OpenFile(o.path)
	if err != nil {
		return model.MealSet{}, fmt.Errorf("open orders file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ordersSheet)
	if err != nil {
		return model.MealSet{}, fmt.Errorf("read orders sheet: %w", err)
	}
	if len(rows) == 0 {
		return model.MealSet{}, fmt.Errorf("orders sheet %q has no header row", ordersSheet)
	}

	col := findDateColumn(rows[0], dateKey)
	if col < 0 {
		return model.MealSet{}, nil
	}
	row := findStudentRow(rows, studentID)
	if row < 0 {
		return model.MealSet{}, nil
	}

	set := model.MealSet{}
	for i, slot := range model.MealSlots {
		if cellAt(rows[row], col+i) != "" {
			set = set.Set(slot, true)
		}
	}
	return set, nil
}

// SetFlags writes the order state for one (student, date) pair. The student
// must exist in the directory; the row and the date column triple are
// created on first use, appended at the end, never recycled.
func (o *Orders) SetFlags(studentID, dateKey string, set model.MealSet) error {
	dateKey, err := model.NormalizeDateKey(dateKey)
	if err != nil {
		return err
	}

	student, err := o.dir.Lookup(studentID)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := excelize.OpenFile(o.path)
	if err != nil {
		return fmt.Errorf("open orders file: %w", err)
	}
	defer f.Close()

	col, err := o.ensureDateColumns(f, dateKey)
	if err != nil {
		return err
	}
	row, err := o.ensureStudentRow(f, student)
	if err != nil {
		return err
	}

	for i, slot := range model.MealSlots {
		cell, err := excelize.CoordinatesToCellName(col+i+1, row+1)
		if err != nil {
			return fmt.Errorf("resolve order cell: %w", err)
		}
		value := ""
		if set.Get(slot) {
			value = orderMarker
		}
		if err := f.SetCellStr(ordersSheet, cell, value); err != nil {
			return fmt.Errorf("write order cell %s: %w", cell, err)
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save orders file: %w", err)
	}
	return nil
}

// Counts aggregates per-slot totals across all rows for one date. An
// unknown date counts as zero everywhere.
func (o *Orders) Counts(dateKey string) (model.MealCount, error) {
	dateKey, err := model.NormalizeDateKey(dateKey)
	if err != nil {
		return model.MealCount{}, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	f, err := excelize.OpenFile(o.path)
	if err != nil {
		return model.MealCount{}, fmt.Errorf("open orders file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ordersSheet)
	if err != nil {
		return model.MealCount{}, fmt.Errorf("read orders sheet: %w", err)
	}
	if len(rows) == 0 {
		return model.MealCount{}, fmt.Errorf("orders sheet %q has no header row", ordersSheet)
	}

	count := model.MealCount{}
	col := findDateColumn(rows[0], dateKey)
	if col < 0 {
		return count, nil
	}

	for _, row := range rows[1:] {
		if cellAt(row, col) != "" {
			count.Breakfast++
		}
		if cellAt(row, col+1) != "" {
			count.Lunch++
		}
		if cellAt(row, col+2) != "" {
			count.Snack++
		}
	}
	return count, nil
}

// HasOrder reports whether any slot is set for (student, date). Used by the
// reminder scan; takes the same read path as live queries.
func (o *Orders) HasOrder(studentID, dateKey string) (bool, error) {
	set, err := o.Flags(studentID, dateKey)
	if err != nil {
		return false, err
	}
	return set.Any(), nil
}

// findDateColumn returns the 0-based index of the first column of the
// date's triple, or -1. Resolution is by exact header match only.
func findDateColumn(header []string, dateKey string) int {
	want := dateKey + slotSuffixes[0]
	for i := fixedColumns; i < len(header); i++ {
		if cellAt(header, i) == want {
			return i
		}
	}
	return -1
}

// findStudentRow returns the 0-based row index for a student id, or -1.
func findStudentRow(rows [][]string, studentID string) int {
	for r := 1; r < len(rows); r++ {
		if cellAt(rows[r], 0) == studentID {
			return r
		}
	}
	return -1
}

// ensureDateColumns guarantees the date's column triple exists and returns
// its first 0-based column index. An existing triple is looked up by label
// before anything is created, so repeated growth requests for the same date
// never create duplicates. New triples go to the right edge of the table.
func (o *Orders) ensureDateColumns(f *excelize.File, dateKey string) (int, error) {
	rows, err := f.GetRows(ordersSheet)
	if err != nil {
		return 0, fmt.Errorf("read orders sheet: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("orders sheet %q has no header row", ordersSheet)
	}

	header := rows[0]
	if col := findDateColumn(header, dateKey); col >= 0 {
		return col, nil
	}

	start := len(header)
	if start < fixedColumns {
		start = fixedColumns
	}
	for i, suffix := range slotSuffixes {
		cell, err := excelize.CoordinatesToCellName(start+i+1, 1)
		if err != nil {
			return 0, fmt.Errorf("resolve header cell: %w", err)
		}
		if err := f.SetCellStr(ordersSheet, cell, dateKey+suffix); err != nil {
			return 0, fmt.Errorf("append date columns: %w", err)
		}
	}
	return start, nil
}

// ensureStudentRow guarantees the student's row exists and returns its
// 0-based index. New rows are appended after the last data row.
func (o *Orders) ensureStudentRow(f *excelize.File, student model.Student) (int, error) {
	rows, err := f.GetRows(ordersSheet)
	if err != nil {
		return 0, fmt.Errorf("read orders sheet: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("orders sheet %q has no header row", ordersSheet)
	}

	if row := findStudentRow(rows, student.ID); row >= 0 {
		return row, nil
	}

	row := len(rows)
	values := []interface{}{student.ID, student.Name, student.Group}
	cell, err := excelize.CoordinatesToCellName(1, row+1)
	if err != nil {
		return 0, fmt.Errorf("resolve row cell: %w", err)
	}
	if err := f.SetSheetRow(ordersSheet, cell, &values); err != nil {
		return 0, fmt.Errorf("append student row: %w", err)
	}
	return row, nil
}
