package reminder

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Registry is the persisted set of reminder subscriptions: student id to
// enabled flag. The backing file is a flat toml map the school admin can
// read and fix by hand; every toggle rewrites the whole file.
type Registry struct {
	path string

	mu      sync.RWMutex
	enabled map[string]bool
}

type registryFile struct {
	Subscribers map[string]bool `toml:"subscribers"`
}

// NewRegistry loads the registry from its file. A missing file is an empty
// registry, not an error.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		path:    path,
		enabled: make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read reminders file: %w", err)
	}

	var file registryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse reminders file: %w", err)
	}
	if file.Subscribers != nil {
		r.enabled = file.Subscribers
	}
	return r, nil
}

// Get reports the subscription state; unknown subscribers default to off.
func (r *Registry) Get(subscriberID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[subscriberID]
}

// Toggle flips the subscription, persists, and returns the new state.
// Toggling twice restores the original state.
func (r *Registry) Toggle(subscriberID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := !r.enabled[subscriberID]
	r.enabled[subscriberID] = next

	if err := r.persist(); err != nil {
		// Roll back so memory and file do not drift.
		r.enabled[subscriberID] = !next
		return !next, err
	}
	return next, nil
}

// AllEnabled returns every enabled subscriber id, sorted for a stable scan
// order.
func (r *Registry) AllEnabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.enabled))
	for id, on := range r.enabled {
		if on {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// DueForReminder reports whether a subscriber should be nudged about the
// given date: subscribed, and hasOrder reports nothing ordered yet. The
// order check is supplied by the caller so the registry stays ignorant of
// how orders are stored.
func (r *Registry) DueForReminder(subscriberID, dateKey string, hasOrder func(dateKey string) (bool, error)) (bool, error) {
	if !r.Get(subscriberID) {
		return false, nil
	}
	has, err := hasOrder(dateKey)
	if err != nil {
		return false, err
	}
	return !has, nil
}

func (r *Registry) persist() error {
	data, err := toml.Marshal(registryFile{Subscribers: r.enabled})
	if err != nil {
		return fmt.Errorf("encode reminders file: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("write reminders file: %w", err)
	}
	return nil
}
