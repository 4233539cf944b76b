package accesskey

import "context"

// Repository describes persistence for access keys.
type Repository interface {
	Insert(ctx context.Context, k *Key) error
	// FindNewest returns the most recently created key of the kind for the
	// email, regardless of its state; older keys are never considered live.
	FindNewest(ctx context.Context, email string, kind Kind) (*Key, error)
	// InvalidateUnused marks every unused key of the kind for the email as
	// used, so at most one live key exists after the next Insert.
	InvalidateUnused(ctx context.Context, email string, kind Kind) error
	// IncrementAttempts bumps the attempt counter atomically in the store
	// and returns the new value.
	IncrementAttempts(ctx context.Context, keyID string) (int, error)
	// MarkUsed flips used=false -> true exactly once. It reports false if
	// the key was already consumed.
	MarkUsed(ctx context.Context, keyID string) (bool, error)
}
