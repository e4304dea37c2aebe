// Package repository holds the error contract shared by all job store
// implementations.
package repository

import "errors"

var (
	// ErrNotFound means the job id does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a compare-and-transition lost the race: the job's
	// current status did not match the expected one.
	ErrConflict = errors.New("status conflict")
)
