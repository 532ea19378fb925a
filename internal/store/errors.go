package store

import "errors"

// ErrStudentNotFound is returned when an identifier is not present in the
// school directory snapshot. It rejects the operation but is never fatal.
var ErrStudentNotFound = errors.New("student not found")
