// Package schedule holds the calendar rules of the canteen: which weekdays
// take orders, and the daily cutoff after which a date's orders freeze.
// Every decision is a pure function of its arguments; callers pass "now"
// explicitly and must re-evaluate before every mutation, since the answer
// flips at the deadline.
package schedule

import (
	"fmt"
	"time"

	"github.com/EgorSenyagin/foodbot/internal/config"
	"github.com/EgorSenyagin/foodbot/internal/model"
)

// Calendar is the configured edit-window and working-day policy.
type Calendar struct {
	deadlineHour   int
	deadlineMinute int
	location       *time.Location
	workingDays    map[time.Weekday]bool
	listingDays    int
}

// New builds a Calendar from configuration.
func New(cfg config.ScheduleConfig) (*Calendar, error) {
	hour, minute, err := config.ParseClock(cfg.Deadline)
	if err != nil {
		return nil, err
	}

	working := make(map[time.Weekday]bool, len(cfg.WorkingDays))
	for _, d := range cfg.WorkingDays {
		if d < 1 || d > 7 {
			return nil, fmt.Errorf("invalid working day %d: want 1..7", d)
		}
		// Config counts 1=Mon..7=Sun; time.Weekday counts 0=Sun.
		working[time.Weekday(d%7)] = true
	}
	if len(working) == 0 {
		return nil, fmt.Errorf("no working days configured")
	}

	listing := cfg.ListingDays
	if listing <= 0 {
		listing = 10
	}

	return &Calendar{
		deadlineHour:   hour,
		deadlineMinute: minute,
		location:       time.FixedZone("school", cfg.UTCOffsetHours*3600),
		workingDays:    working,
		listingDays:    listing,
	}, nil
}

// Now converts a point in time into school local time.
func (c *Calendar) Now(t time.Time) time.Time {
	return t.In(c.location)
}

// IsLocked reports whether mutation of the given date is forbidden at the
// given moment: past dates always, today from the deadline onward. It
// never errors; an unparseable date key is locked.
func (c *Calendar) IsLocked(dateKey string, now time.Time) bool {
	target, err := model.ParseDateKey(dateKey)
	if err != nil {
		return true
	}

	local := now.In(c.location)
	today := model.DateKeyOf(local)
	key := model.DateKeyOf(target)

	if key < today {
		return true
	}
	if key == today {
		h, m := local.Hour(), local.Minute()
		return h > c.deadlineHour || (h == c.deadlineHour && m >= c.deadlineMinute)
	}
	return false
}

// IsWorkingDay reports whether the canteen serves on that weekday.
func (c *Calendar) IsWorkingDay(t time.Time) bool {
	return c.workingDays[t.Weekday()]
}

// UpcomingDates lists the next configured number of working days, starting
// from today, as canonical date keys. This feeds the date menu.
func (c *Calendar) UpcomingDates(now time.Time) []string {
	out := make([]string, 0, c.listingDays)
	d := now.In(c.location)
	for len(out) < c.listingDays {
		if c.IsWorkingDay(d) {
			out = append(out, model.DateKeyOf(d))
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// NextWorkingDay returns the first working day strictly after the given
// moment's date.
func (c *Calendar) NextWorkingDay(now time.Time) string {
	d := now.In(c.location).AddDate(0, 0, 1)
	for !c.IsWorkingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return model.DateKeyOf(d)
}

// WeekDates returns the working days of the Monday-based week containing
// the given date key.
func (c *Calendar) WeekDates(dateKey string) ([]string, error) {
	t, err := model.ParseDateKey(dateKey)
	if err != nil {
		return nil, err
	}

	// Walk back to Monday.
	offset := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -offset)

	out := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		d := monday.AddDate(0, 0, i)
		if c.IsWorkingDay(d) {
			out = append(out, model.DateKeyOf(d))
		}
	}
	return out, nil
}
