// Package accesskey is the ledger of short-lived single-use secrets gating
// signup and password reset. Keys are stored only as bcrypt hashes; the
// plaintext exists in memory at issuance and in the outbound email, never in
// a response body or a log line.
package accesskey

import "time"

// Kind discriminates what a key may be consumed for.
type Kind string

const (
	KindSignup Kind = "signup"
	KindReset  Kind = "reset"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSignup || k == KindReset
}

// Key is one issued access key. Lifecycle per key:
// issued -> (verified)* -> consumed, or issued -> expired, or
// issued -> attempts-exhausted. All terminal states are permanent.
type Key struct {
	ID        string
	Email     string
	KeyHash   string
	Kind      Kind
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	Attempts  int
}

// Usable reports whether the key can still be verified or consumed at the
// given instant, under the given attempt ceiling.
func (k *Key) Usable(now time.Time, maxAttempts int) error {
	switch {
	case k.Used:
		return ErrUsed
	case !now.Before(k.ExpiresAt):
		return ErrExpired
	case k.Attempts >= maxAttempts:
		return ErrAttemptsExhausted
	default:
		return nil
	}
}
