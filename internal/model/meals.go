package model

// MealSlot identifies one of the three meal periods of a school day.
type MealSlot string

const (
	MealBreakfast MealSlot = "breakfast"
	MealLunch     MealSlot = "lunch"
	MealSnack     MealSlot = "snack"
)

// MealSlots lists the slots in their fixed column order. Every per-date
// column triple, in every file, follows this order.
var MealSlots = [3]MealSlot{MealBreakfast, MealLunch, MealSnack}

// MealSet is the order state of one student for one date. The zero value
// (nothing ordered) is the default for any (student, date) pair that has
// never been written.
type MealSet struct {
	Breakfast bool `json:"breakfast"`
	Lunch     bool `json:"lunch"`
	Snack     bool `json:"snack"`
}

// FullDay is a MealSet with every slot ordered.
func FullDay() MealSet {
	return MealSet{Breakfast: true, Lunch: true, Snack: true}
}

// Get returns the state of a single slot.
func (m MealSet) Get(slot MealSlot) bool {
	switch slot {
	case MealBreakfast:
		return m.Breakfast
	case MealLunch:
		return m.Lunch
	case MealSnack:
		return m.Snack
	}
	return false
}

// Set updates a single slot and returns the modified set.
func (m MealSet) Set(slot MealSlot, v bool) MealSet {
	switch slot {
	case MealBreakfast:
		m.Breakfast = v
	case MealLunch:
		m.Lunch = v
	case MealSnack:
		m.Snack = v
	}
	return m
}

// Any reports whether at least one slot is ordered.
func (m MealSet) Any() bool {
	return m.Breakfast || m.Lunch || m.Snack
}

// MealCount holds per-slot totals for one date.
type MealCount struct {
	Breakfast int `json:"breakfast"`
	Lunch     int `json:"lunch"`
	Snack     int `json:"snack"`
}
