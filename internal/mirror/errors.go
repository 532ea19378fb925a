package mirror

import "errors"

var (
	// ErrGroupNotFound means the student could not be located in any class
	// group of the kitchen sheet.
	ErrGroupNotFound = errors.New("student not found in any mirror group")

	// ErrColumnNotFound means the group's derived layout has no column
	// triple for the requested date.
	ErrColumnNotFound = errors.New("date columns not found in mirror group")

	// ErrNotLoaded means no layout has been derived yet (the kitchen sheet
	// was missing or unreadable on every load so far).
	ErrNotLoaded = errors.New("mirror layout not loaded")
)
