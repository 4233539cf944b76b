package mission

import "errors"

var (
	// ErrUnknownMission marks a mission id outside the catalog.
	ErrUnknownMission = errors.New("mission: unsupported mission")
	// ErrNotFound marks a missing completion row.
	ErrNotFound = errors.New("mission: completion not found")
)
