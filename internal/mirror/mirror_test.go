package mirror_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/EgorSenyagin/foodbot/internal/mirror"
	"github.com/EgorSenyagin/foodbot/internal/model"
)

func testConfig() mirror.Config {
	return mirror.Config{
		AnchorScanRows:    10,
		AnchorFallbackRow: 3,
		ListFallbackRow:   5,
		MaxDateColumns:    40,
	}
}

// writeKitchenFile builds a kitchen sheet per class group. Cells are given
// as (cell ref, value) pairs so tests can shape arbitrary layouts.
func writeKitchenFile(t *testing.T, path string, sheets map[string]map[string]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for sheet, cells := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				t.Fatalf("new sheet %s: %v", sheet, err)
			}
		}
		for cell, value := range cells {
			if err := f.SetCellStr(sheet, cell, value); err != nil {
				t.Fatalf("set %s!%s: %v", sheet, cell, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save kitchen file: %v", err)
	}
}

// standardGroup is a well-formed class sheet: dates on row 2 from column C,
// ФИО sentinel on row 4, students from row 5.
func standardGroup() map[string]string {
	return map[string]string{
		"A1": "Класс 5Б",
		"C2": "04.03.2024",
		"F2": "05.03.2024",
		"A4": "ФИО",
		"A5": "Иванов Иван",
		"A6": "Петрова Анна",
		"A7": "Итого по классу",
	}
}

func TestLoadDetectsLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")
	writeKitchenFile(t, path, map[string]map[string]string{"5Б": standardGroup()})

	m := mirror.New(path, testConfig())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	layout := m.Layout()
	g, ok := layout.Groups["5Б"]
	if !ok {
		t.Fatalf("group 5Б not detected, groups: %v", layout.Groups)
	}

	if g.Anchor.Fallback || g.Anchor.Row != 2 {
		t.Fatalf("anchor = %+v, want found at row 2", g.Anchor)
	}
	if g.ListStart.Fallback || g.ListStart.Row != 5 {
		t.Fatalf("list start = %+v, want found at row 5", g.ListStart)
	}

	if col := g.DateColumns["2024-03-04"]; col != 3 {
		t.Fatalf("2024-03-04 column = %d, want 3 (column C)", col)
	}
	if col := g.DateColumns["2024-03-05"]; col != 6 {
		t.Fatalf("2024-03-05 column = %d, want 6 (column F)", col)
	}

	// The totals row ends the list; students above it are indexed.
	if len(g.Students) != 2 {
		t.Fatalf("students = %v, want 2 entries", g.Students)
	}
}

func TestLoadAnchorFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")
	writeKitchenFile(t, path, map[string]map[string]string{
		"5Б": {
			"A1": "Класс 5Б",
			"A4": "ФИО",
			"A5": "Иванов Иван",
		},
	})

	m := mirror.New(path, testConfig())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	g := m.Layout().Groups["5Б"]
	if !g.Anchor.Fallback || g.Anchor.Row != 3 {
		t.Fatalf("anchor = %+v, want fallback row 3", g.Anchor)
	}
	if len(g.DateColumns) != 0 {
		t.Fatalf("date columns = %v, want none on the fallback row", g.DateColumns)
	}
}

func TestLoadListSentinelFallback(t *testing.T) {
	// No ФИО sentinel: the list falls back to the configured row, and names
	// below that row are still found.
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")
	writeKitchenFile(t, path, map[string]map[string]string{
		"5Б": {
			"C2": "04.03.2024",
			"A5": "Иванов Иван",
			"A6": "Петрова Анна",
		},
	})

	m := mirror.New(path, testConfig())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	g := m.Layout().Groups["5Б"]
	if !g.ListStart.Fallback || g.ListStart.Row != 5 {
		t.Fatalf("list start = %+v, want fallback row 5", g.ListStart)
	}

	sheet, row, ok := m.FindStudent("иванов иван")
	if !ok || sheet != "5Б" || row != 5 {
		t.Fatalf("FindStudent = (%s, %d, %v), want (5Б, 5, true)", sheet, row, ok)
	}
}

func TestLoadIrregularDateSpacing(t *testing.T) {
	// A non-date column between triples advances the walk by one column,
	// not three.
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")
	writeKitchenFile(t, path, map[string]map[string]string{
		"5Б": {
			"C2": "04.03.2024",
			"F2": "примечание",
			"G2": "05.03.2024",
			"A4": "ФИО",
			"A5": "Иванов Иван",
		},
	})

	m := mirror.New(path, testConfig())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	g := m.Layout().Groups["5Б"]
	if col := g.DateColumns["2024-03-04"]; col != 3 {
		t.Fatalf("2024-03-04 column = %d, want 3", col)
	}
	if col := g.DateColumns["2024-03-05"]; col != 7 {
		t.Fatalf("2024-03-05 column = %d, want 7 (column G)", col)
	}
}

func TestFindStudentNormalization(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")
	writeKitchenFile(t, path, map[string]map[string]string{"5Б": standardGroup()})

	m := mirror.New(path, testConfig())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, name := range []string{"Иванов Иван", "  иванов   иван  ", "ИВАНОВ ИВАН"} {
		if _, _, ok := m.FindStudent(name); !ok {
			t.Fatalf("FindStudent(%q) not found", name)
		}
	}
	if _, _, ok := m.FindStudent("Сидоров Пётр"); ok {
		t.Fatal("FindStudent should not match an unknown name")
	}
}

func TestUpdateOrderWritesMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")
	writeKitchenFile(t, path, map[string]map[string]string{"5Б": standardGroup()})

	m := mirror.New(path, testConfig())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	set := model.MealSet{Breakfast: true, Snack: true}
	if err := m.UpdateOrder("Иванов Иван", "2024-03-04", set); err != nil {
		t.Fatalf("UpdateOrder failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen kitchen file: %v", err)
	}
	defer f.Close()

	for _, tc := range []struct {
		cell string
		want string
	}{
		{"C5", "З"},
		{"D5", ""},
		{"E5", "П"},
	} {
		got, err := f.GetCellValue("5Б", tc.cell)
		if err != nil {
			t.Fatalf("read %s: %v", tc.cell, err)
		}
		if got != tc.want {
			t.Fatalf("cell %s = %q, want %q", tc.cell, got, tc.want)
		}
	}
}

func TestUpdateOrderResolutionFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")
	writeKitchenFile(t, path, map[string]map[string]string{"5Б": standardGroup()})

	m := mirror.New(path, testConfig())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := m.UpdateOrder("Сидоров Пётр", "2024-03-04", model.FullDay())
	if !errors.Is(err, mirror.ErrGroupNotFound) {
		t.Fatalf("unknown student err = %v, want ErrGroupNotFound", err)
	}

	err = m.UpdateOrder("Иванов Иван", "2030-01-01", model.FullDay())
	if !errors.Is(err, mirror.ErrColumnNotFound) {
		t.Fatalf("unknown date err = %v, want ErrColumnNotFound", err)
	}
}

func TestLoadSerializesWithUpdateOrder(t *testing.T) {
	// Load and UpdateOrder share the kitchen file; interleaved reloads
	// (the watcher fires them from a timer goroutine) must never open the
	// workbook mid-save. With both under the mirror's lock, every reload
	// of the well-formed file succeeds.
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")
	writeKitchenFile(t, path, map[string]map[string]string{"5Б": standardGroup()})

	m := mirror.New(path, testConfig())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := m.Load(); err != nil {
				t.Errorf("concurrent Load failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := m.UpdateOrder("Иванов Иван", "2024-03-04", model.FullDay()); err != nil {
				t.Errorf("concurrent UpdateOrder failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if _, _, ok := m.FindStudent("Иванов Иван"); !ok {
		t.Fatal("layout lost after concurrent reloads")
	}
}

func TestLoadFailureKeepsPreviousLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.xlsx")

	m := mirror.New(path, testConfig())
	if err := m.Load(); err == nil {
		t.Fatal("Load of a missing file should fail")
	}
	if m.Layout() != nil {
		t.Fatal("layout should stay nil after a failed first load")
	}

	writeKitchenFile(t, path, map[string]map[string]string{"5Б": standardGroup()})
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove kitchen file: %v", err)
	}
	if err := m.Load(); err == nil {
		t.Fatal("Load after removal should fail")
	}
	if m.Layout() == nil {
		t.Fatal("previous layout should survive a failed reload")
	}
}
