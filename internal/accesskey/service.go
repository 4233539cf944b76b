package accesskey

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/JasonCodez/kryptyk-labs/internal/cipher"
	"github.com/JasonCodez/kryptyk-labs/internal/dbx"
	"github.com/JasonCodez/kryptyk-labs/internal/obs"
)

const (
	// KeyWidth is the fixed digit count of every access key.
	KeyWidth = 6

	defaultTTL         = 15 * time.Minute
	defaultMaxAttempts = 5
)

var keyShape = regexp.MustCompile(`^\d{6}$`)

// Issued is the result of issuing a key. PlainKey leaves the service only
// toward the mailer and, for reset keys, the post-security-answer response;
// gate responses carry the ciphered form and shift.
type Issued struct {
	KeyID     string
	PlainKey  string
	CipherKey string
	Shift     int
	ExpiresAt time.Time
}

// Service is the access-key ledger: issuance, verification, and single-use
// consumption.
type Service struct {
	db          *sql.DB
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithTTL overrides the key lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxAttempts overrides the verification attempt ceiling.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the ledger over a database handle.
func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:          db,
		ttl:         defaultTTL,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAttempts exposes the configured attempt ceiling.
func (s *Service) MaxAttempts() int { return s.maxAttempts }

// Issue generates a fresh key of the kind for the email, stores only its
// bcrypt hash, and invalidates any previously live key of the same kind so
// at most one key is ever live per (email, kind).
func (s *Service) Issue(ctx context.Context, email string, kind Kind) (*Issued, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("accesskey: unknown kind %q", kind)
	}

	plain, err := randomKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	shift, err := randomShift()
	if err != nil {
		return nil, fmt.Errorf("generate shift: %w", err)
	}
	ciphered, err := cipher.Encode(plain, shift)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	now := s.now().UTC()
	key := &Key{
		Email:     email,
		KeyHash:   string(hash),
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPGRepository(tx)
		if err := repo.InvalidateUnused(ctx, email, kind); err != nil {
			return err
		}
		return repo.Insert(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	obs.AccessKeyIssued(string(kind))
	return &Issued{
		KeyID:     key.ID,
		PlainKey:  plain,
		CipherKey: ciphered,
		Shift:     shift,
		ExpiresAt: key.ExpiresAt,
	}, nil
}

// Verify checks a candidate plaintext against the newest key of the kind.
// It fails closed when no key exists, the key is consumed or expired, or
// the attempt ceiling is reached — even for a correct plaintext. A match
// does NOT consume the key: consumption belongs to the transaction of the
// state change the key guards, so verification stays retry-safe.
func (s *Service) Verify(ctx context.Context, email string, kind Kind, candidate string) (*Key, error) {
	if !keyShape.MatchString(candidate) {
		obs.AccessKeyVerifyFailed("malformed")
		return nil, ErrMismatch
	}

	repo := NewPGRepository(s.db)
	key, err := repo.FindNewest(ctx, email, kind)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.AccessKeyVerifyFailed("no_key")
		}
		return nil, err
	}
	if err := key.Usable(s.now(), s.maxAttempts); err != nil {
		obs.AccessKeyVerifyFailed(failureReason(err))
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(candidate)) != nil {
		if _, err := repo.IncrementAttempts(ctx, key.ID); err != nil {
			return nil, err
		}
		obs.AccessKeyVerifyFailed("mismatch")
		return nil, ErrMismatch
	}
	return key, nil
}

// Consume marks a key used inside the caller's transaction. It must run in
// the same transaction as the state change it guards; a second consume of
// the same key reports ErrUsed rather than re-triggering anything.
func (s *Service) Consume(ctx context.Context, q dbx.DBTX, keyID string) error {
	ok, err := NewPGRepository(q).MarkUsed(ctx, keyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUsed
	}
	return nil
}

// ConsumeNewest consumes the newest live key of the kind without re-taking
// the plaintext. Signup finalization uses it: the plaintext was already
// proven in the verify step, and asking for it again would force the client
// to hold key material longer than necessary.
func (s *Service) ConsumeNewest(ctx context.Context, q dbx.DBTX, email string, kind Kind) error {
	key, err := NewPGRepository(q).FindNewest(ctx, email, kind)
	if err != nil {
		return err
	}
	if err := key.Usable(s.now(), s.maxAttempts); err != nil {
		return err
	}
	return s.Consume(ctx, q, key.ID)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrUsed):
		return "used"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrAttemptsExhausted):
		return "exhausted"
	default:
		return "other"
	}
}

// randomKey draws a uniformly distributed fixed-width numeric key.
func randomKey() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomShift() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
