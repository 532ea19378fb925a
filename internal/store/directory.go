package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/EgorSenyagin/foodbot/internal/model"
)

// Directory is the read-only lookup over students.xlsx. The file is owned
// by the school office: row 1 is a header, every following row is
// (id, full name, class). The service never writes it.
type Directory struct {
	path string
	mu   sync.RWMutex
}

// NewDirectory creates a directory over the given students file. The file
// may be absent at startup; every lookup re-reads it.
func NewDirectory(path string) *Directory {
	return &Directory{path: path}
}

// Lookup finds a student by identifier. Returns ErrStudentNotFound when the
// id is not in the directory.
func (d *Directory) Lookup(id string) (model.Student, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Student{}, ErrStudentNotFound
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.readRows()
	if err != nil {
		return model.Student{}, err
	}

	for _, row := range rows[1:] {
		if cellAt(row, 0) == id {
			return model.Student{
				ID:    id,
				Name:  cellAt(row, 1),
				Group: cellAt(row, 2),
			}, nil
		}
	}
	return model.Student{}, ErrStudentNotFound
}

// All returns every directory entry in file order.
func (d *Directory) All() ([]model.Student, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.readRows()
	if err != nil {
		return nil, err
	}

	students := make([]model.Student, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id := cellAt(row, 0)
		if id == "" {
			continue
		}
		students = append(students, model.Student{
			ID:    id,
			Name:  cellAt(row, 1),
			Group: cellAt(row, 2),
		})
	}
	return students, nil
}

func (d *Directory) readRows() ([][]string, error) {
	f, err := excelize.OpenFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("open students file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("students file %s has no sheets", d.path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read students sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("students file %s is empty", d.path)
	}
	return rows, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
