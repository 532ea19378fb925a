package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/EgorSenyagin/foodbot/internal/api"
	"github.com/EgorSenyagin/foodbot/internal/config"
	"github.com/EgorSenyagin/foodbot/internal/reminder"
	"github.com/EgorSenyagin/foodbot/internal/schedule"
	"github.com/EgorSenyagin/foodbot/internal/service/orders"
	"github.com/EgorSenyagin/foodbot/internal/store"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dirPath := t.TempDir()

	studentsPath := filepath.Join(dirPath, "students.xlsx")
	f := excelize.NewFile()
	header := []interface{}{"id", "ФИО", "класс"}
	_ = f.SetSheetRow("Sheet1", "A1", &header)
	row := []interface{}{"100953", "Иванов Иван", "5Б"}
	_ = f.SetSheetRow("Sheet1", "A2", &row)
	if err := f.SaveAs(studentsPath); err != nil {
		t.Fatalf("save students file: %v", err)
	}
	f.Close()

	dir := store.NewDirectory(studentsPath)
	records, err := store.NewOrders(filepath.Join(dirPath, "orders.xlsx"), dir)
	if err != nil {
		t.Fatalf("NewOrders failed: %v", err)
	}

	cal, err := schedule.New(config.ScheduleConfig{
		Deadline:       "08:00",
		ReminderAt:     "18:00",
		UTCOffsetHours: 0,
		WorkingDays:    []int{1, 2, 3, 4, 5},
		ListingDays:    10,
	})
	if err != nil {
		t.Fatalf("schedule.New failed: %v", err)
	}

	registry, err := reminder.NewRegistry(filepath.Join(dirPath, "reminders.toml"))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	// No kitchen file in this fixture: the mirror stays nil and the write
	// path must work without it.
	svc := orders.NewService(dir, records, nil, cal).WithClock(func() time.Time {
		return time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)
	})

	router := gin.New()
	group := router.Group("/api")
	api.NewHandler(svc, registry, nil).RegisterRoutes(group)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateSession(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/session", gin.H{"studentId": "100953"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Session api.Session `json:"session"`
		Student struct {
			Name string `json:"name"`
		} `json:"student"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Session.Token == "" || resp.Session.StudentID != "100953" {
		t.Fatalf("session = %+v, want token and student id", resp.Session)
	}
	if resp.Student.Name != "Иванов Иван" {
		t.Fatalf("student name = %q, want Иванов Иван", resp.Student.Name)
	}

	w = doJSON(t, router, http.MethodPost, "/api/session", gin.H{"studentId": "424242"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown student status = %d, want 404", w.Code)
	}
}

func TestPutOrderRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/orders/100953/2024-03-05",
		gin.H{"breakfast": true, "lunch": false, "snack": true})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, want 200; body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/orders/100953/2024-03-05", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}
	var resp struct {
		Meals struct {
			Breakfast bool `json:"breakfast"`
			Lunch     bool `json:"lunch"`
			Snack     bool `json:"snack"`
		} `json:"meals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Meals.Breakfast || resp.Meals.Lunch || !resp.Meals.Snack {
		t.Fatalf("meals = %+v, want breakfast+snack", resp.Meals)
	}
}

func TestPutOrderLocked(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/orders/100953/2024-03-01", gin.H{"breakfast": true})
	if w.Code != http.StatusLocked {
		t.Fatalf("locked date status = %d, want 423", w.Code)
	}
}

func TestPutOrderUnknownStudent(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/orders/424242/2024-03-05", gin.H{"breakfast": true})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown student status = %d, want 404", w.Code)
	}
}

func TestToggleReminder(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/reminders/100953", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("false")) {
		t.Fatalf("initial state = %d %s, want enabled=false", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/api/reminders/100953", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("true")) {
		t.Fatalf("toggle = %d %s, want enabled=true", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/reminders/100953", nil)
	if !bytes.Contains(w.Body.Bytes(), []byte("true")) {
		t.Fatalf("get after toggle = %s, want enabled=true", w.Body.String())
	}
}

func TestListDates(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/dates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Dates []struct {
			Date   string `json:"date"`
			Locked bool   `json:"locked"`
		} `json:"dates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Dates) != 10 {
		t.Fatalf("got %d dates, want 10", len(resp.Dates))
	}
	if resp.Dates[0].Date != "2024-03-04" || resp.Dates[0].Locked {
		t.Fatalf("dates[0] = %+v, want open 2024-03-04", resp.Dates[0])
	}
}
