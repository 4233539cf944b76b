package mission

import "context"

// Repository persists the completion ledger.
type Repository interface {
	// GetSuccess loads the successful completion of a mission by a user,
	// or ErrNotFound when the user has not completed it.
	GetSuccess(ctx context.Context, userID, missionID string) (*Completion, error)
	// Upsert records an attempt outcome. On conflict the row is updated
	// in place with a fresh timestamp, so the ledger never grows past one
	// row per (user, mission).
	Upsert(ctx context.Context, userID, missionID string, success bool) error
	// CountSuccessful is the authoritative successful-mission count the
	// clearance calculator runs on.
	CountSuccessful(ctx context.Context, userID string) (int, error)
}
