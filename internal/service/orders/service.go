// Package orders is the write path of the system: resolve the student,
// gate the mutation on the edit window, apply it to the authoritative
// store, then propagate to the kitchen mirror. Mirror failures are logged
// and swallowed here; the orders file has already been written and its
// result is what the caller sees.
package orders

import (
	"errors"
	"log"
	"time"

	"github.com/EgorSenyagin/foodbot/internal/mirror"
	"github.com/EgorSenyagin/foodbot/internal/model"
	"github.com/EgorSenyagin/foodbot/internal/schedule"
	"github.com/EgorSenyagin/foodbot/internal/store"
)

// ErrEditLocked rejects a mutation outside the edit window: the date is in
// the past, or it is today and the deadline has passed.
var ErrEditLocked = errors.New("edit window closed for this date")

// Service coordinates one user action across the stores.
type Service struct {
	dir      *store.Directory
	records  *store.Orders
	mirror   *mirror.Mirror
	calendar *schedule.Calendar

	now func() time.Time
}

// NewService wires the facade. The mirror may be nil (e.g. no kitchen file
// configured); propagation is then skipped entirely.
func NewService(dir *store.Directory, records *store.Orders, m *mirror.Mirror, cal *schedule.Calendar) *Service {
	return &Service{
		dir:      dir,
		records:  records,
		mirror:   m,
		calendar: cal,
		now:      time.Now,
	}
}

// WithClock overrides the time source. The edit window and all date
// listings derive from it; production keeps time.Now.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Lookup resolves a student id against the directory.
func (s *Service) Lookup(studentID string) (model.Student, error) {
	return s.dir.Lookup(studentID)
}

// Flags returns the current order state. An unreadable orders file reads
// as nothing-ordered; the degradation is logged, not surfaced.
func (s *Service) Flags(studentID, dateKey string) (model.MealSet, error) {
	set, err := s.records.Flags(studentID, dateKey)
	if err != nil {
		if _, normErr := model.NormalizeDateKey(dateKey); normErr != nil {
			return model.MealSet{}, normErr
		}
		log.Printf("orders query degraded, returning empty set: %v", err)
		return model.MealSet{}, nil
	}
	return set, nil
}

// SetFlags applies one order mutation. The edit window is evaluated here,
// immediately before the write; callers must not cache the decision.
func (s *Service) SetFlags(studentID, dateKey string, set model.MealSet) error {
	if s.calendar.IsLocked(dateKey, s.now()) {
		return ErrEditLocked
	}

	student, err := s.dir.Lookup(studentID)
	if err != nil {
		return err
	}

	if err := s.records.SetFlags(studentID, dateKey, set); err != nil {
		return err
	}

	s.propagate(student, dateKey, set)
	return nil
}

// OrderDay sets all three slots for one date.
func (s *Service) OrderDay(studentID, dateKey string) error {
	return s.SetFlags(studentID, dateKey, model.FullDay())
}

// OrderWeek applies all-true to every working day of the week containing
// dateKey, silently skipping locked days. Returns the dates written.
func (s *Service) OrderWeek(studentID, dateKey string) ([]string, error) {
	return s.applyWeek(studentID, dateKey, model.FullDay())
}

// CancelWeek clears every still-editable working day of that week.
func (s *Service) CancelWeek(studentID, dateKey string) ([]string, error) {
	return s.applyWeek(studentID, dateKey, model.MealSet{})
}

func (s *Service) applyWeek(studentID, dateKey string, set model.MealSet) ([]string, error) {
	days, err := s.calendar.WeekDates(dateKey)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(days))
	for _, day := range days {
		if s.calendar.IsLocked(day, s.now()) {
			continue
		}
		if err := s.SetFlags(studentID, day, set); err != nil {
			// A race with the deadline surfaces as ErrEditLocked; skip the
			// day like the pre-check would have.
			if errors.Is(err, ErrEditLocked) {
				continue
			}
			return applied, err
		}
		applied = append(applied, day)
	}
	return applied, nil
}

// Counts aggregates per-slot totals for one date. An unreadable orders
// file counts as zeros; the degradation is logged, not surfaced.
func (s *Service) Counts(dateKey string) (model.MealCount, error) {
	count, err := s.records.Counts(dateKey)
	if err != nil {
		if _, normErr := model.NormalizeDateKey(dateKey); normErr != nil {
			return model.MealCount{}, normErr
		}
		log.Printf("counts query degraded, returning zeros: %v", err)
		return model.MealCount{}, nil
	}
	return count, nil
}

// DayStat is one date's aggregate in the admin view.
type DayStat struct {
	Date   string          `json:"date"`
	Counts model.MealCount `json:"counts"`
}

// Stats returns today's totals and the next working day's totals.
func (s *Service) Stats() (today, next DayStat, err error) {
	now := s.now()
	todayKey := model.DateKeyOf(s.calendar.Now(now))
	nextKey := s.calendar.NextWorkingDay(now)

	todayCounts, err := s.Counts(todayKey)
	if err != nil {
		return DayStat{}, DayStat{}, err
	}
	nextCounts, err := s.Counts(nextKey)
	if err != nil {
		return DayStat{}, DayStat{}, err
	}

	return DayStat{Date: todayKey, Counts: todayCounts},
		DayStat{Date: nextKey, Counts: nextCounts}, nil
}

// Dates lists the upcoming working days for the date menu.
func (s *Service) Dates() []string {
	return s.calendar.UpcomingDates(s.now())
}

// IsLocked exposes the edit-window decision for the presentation layer
// (e.g. to grey out a date). The answer must not be cached across user
// interactions.
func (s *Service) IsLocked(dateKey string) bool {
	return s.calendar.IsLocked(dateKey, s.now())
}

// propagate mirrors the mutation into the kitchen sheet. Best effort by
// contract: every failure lands in the log and nowhere else.
func (s *Service) propagate(student model.Student, dateKey string, set model.MealSet) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.UpdateOrder(student.Name, dateKey, set); err != nil {
		log.Printf("mirror update skipped for %s on %s: %v", student.Name, dateKey, err)
	}
}
