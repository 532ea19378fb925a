package reminder

import (
	"context"
	"log"
	"time"

	"github.com/EgorSenyagin/foodbot/internal/config"
	"github.com/EgorSenyagin/foodbot/internal/model"
	"github.com/EgorSenyagin/foodbot/internal/schedule"
	"github.com/EgorSenyagin/foodbot/internal/store"
)

// Notifier delivers one reminder. Delivery is the host's concern; the
// scanner only decides who is due.
type Notifier interface {
	Notify(student model.Student, dateKey string) error
}

// LogNotifier is the default Notifier: it just logs who would be reminded.
type LogNotifier struct{}

// Notify logs the reminder.
func (LogNotifier) Notify(student model.Student, dateKey string) error {
	log.Printf("reminder due: %s (%s) has no order for %s", student.Name, student.ID, dateKey)
	return nil
}

// Scanner runs the periodic reminder check: once a day at the configured
// time, every enabled subscriber with no order for the next working day
// gets a notification. The scan only reads, through the same locked paths
// as live requests.
type Scanner struct {
	registry *Registry
	dir      *store.Directory
	orders   *store.Orders
	calendar *schedule.Calendar
	notifier Notifier

	fireHour   int
	fireMinute int

	now func() time.Time
}

// NewScanner wires the scanner. A nil notifier falls back to LogNotifier.
func NewScanner(cfg config.ScheduleConfig, reg *Registry, dir *store.Directory, orders *store.Orders, cal *schedule.Calendar, n Notifier) (*Scanner, error) {
	hour, minute, err := config.ParseClock(cfg.ReminderAt)
	if err != nil {
		return nil, err
	}
	if n == nil {
		n = LogNotifier{}
	}
	return &Scanner{
		registry:   reg,
		dir:        dir,
		orders:     orders,
		calendar:   cal,
		notifier:   n,
		fireHour:   hour,
		fireMinute: minute,
		now:        time.Now,
	}, nil
}

// Run ticks once a minute and fires the scan when school local time passes
// the configured reminder time, at most once per day. Blocks until the
// context is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastFired string // date key of the last fired day
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			local := s.calendar.Now(s.now())
			today := model.DateKeyOf(local)
			if lastFired == today {
				continue
			}
			h, m := local.Hour(), local.Minute()
			if h < s.fireHour || (h == s.fireHour && m < s.fireMinute) {
				continue
			}
			lastFired = today
			s.Scan(s.now())
		}
	}
}

// Scan runs one reminder pass for the next working day after now.
func (s *Scanner) Scan(now time.Time) {
	target := s.calendar.NextWorkingDay(now)

	for _, id := range s.registry.AllEnabled() {
		student, err := s.dir.Lookup(id)
		if err != nil {
			log.Printf("reminder scan: subscriber %s not in directory: %v", id, err)
			continue
		}

		due, err := s.registry.DueForReminder(id, target, func(dateKey string) (bool, error) {
			return s.orders.HasOrder(id, dateKey)
		})
		if err != nil {
			log.Printf("reminder scan: check %s failed: %v", id, err)
			continue
		}
		if !due {
			continue
		}

		if err := s.notifier.Notify(student, target); err != nil {
			log.Printf("reminder scan: notify %s failed: %v", id, err)
		}
	}
}
