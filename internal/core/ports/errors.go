package ports

import "errors"

var (
	// ErrNotFound is returned by Get* methods when no row matches.
	ErrNotFound = errors.New("row not found")

	// ErrVersionConflict is returned by guarded updates when the
	// expected-version check fails.
	ErrVersionConflict = errors.New("row version conflict")

	// ErrLimitExceeded is returned by IncrementUsage when the guarded
	// update would push the mandate past a lifetime cap.
	ErrLimitExceeded = errors.New("mandate usage increment would exceed a lifetime cap")
)
