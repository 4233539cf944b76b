package asset

import "context"

// Repository describes persistence for users. Implementations accept a
// dbx.DBTX so the same code runs inside and outside a transaction.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// SetCredentials finalizes signup: password hash, optional display
	// name, and the security question/answer pair, and stamps the first
	// login time.
	SetCredentials(ctx context.Context, userID, passwordHash, displayName, question, answerHash string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	TouchLogin(ctx context.Context, userID string) error
	// SyncClearance writes the cached clearance label and progress. The
	// values must come from the clearance calculator, never from a client.
	SyncClearance(ctx context.Context, userID, label string, progressPct int) error
	UpdateProfile(ctx context.Context, userID string, displayName, motto *string) error
}
