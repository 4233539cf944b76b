package asset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/accesskey"
	"github.com/JasonCodez/kryptyk-labs/internal/audit"
	"github.com/JasonCodez/kryptyk-labs/internal/auth"
	"github.com/JasonCodez/kryptyk-labs/internal/dbx"
	"github.com/JasonCodez/kryptyk-labs/internal/mailer"
	"github.com/JasonCodez/kryptyk-labs/internal/obs"
)

const minPasswordLen = 8

var emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Decoy questions served for unknown emails so a reset request never
// reveals whether an account exists. The same email always gets the same
// decoy.
var decoyQuestions = [...]string{
	"What was the callsign of your first handler?",
	"In which city did you receive your initial briefing?",
	"What was the model of your first terminal?",
	"What alias did you use during orientation?",
}

// Service orchestrates the signup gate and session lifecycle: key issuance
// with lazy user creation, verification, signup finalization, login, and
// the reset protocol.
type Service struct {
	db     *sql.DB
	keys   *accesskey.Service
	tokens *auth.Service
	mail   mailer.Sender
	log    *audit.Recorder
}

func NewService(db *sql.DB, keys *accesskey.Service, tokens *auth.Service, mail mailer.Sender, log *audit.Recorder) *Service {
	return &Service{db: db, keys: keys, tokens: tokens, mail: mail, log: log}
}

// NormalizeEmail is the canonical form all gate operations key on.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return emailShape.MatchString(email)
}

// Grant is what the gate returns for a key request: the ciphered key and
// the shift to undo. The plaintext goes out by email only.
type Grant struct {
	CipherKey string
	Shift     int
	ExpiresAt time.Time
}

// RequestAccess issues a signup key for the email, creating the user row on
// first contact. An already-provisioned asset is refused; it must use the
// login or reset paths.
func (s *Service) RequestAccess(ctx context.Context, email string) (*Grant, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}

	repo := NewPGRepository(s.db)
	u, err := repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		u = &User{Email: email}
		if err := repo.Create(ctx, u); err != nil {
			if !errors.Is(err, ErrConflict) {
				return nil, err
			}
			// Lost the creation race; the row that won holds the real id.
			u, err = repo.FindByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if u.Provisioned() {
				return nil, ErrAlreadyProvisioned
			}
		}
	case err != nil:
		return nil, err
	case u.Provisioned():
		return nil, ErrAlreadyProvisioned
	}

	issued, err := s.keys.Issue(ctx, email, accesskey.KindSignup)
	if err != nil {
		return nil, err
	}

	s.dispatchKey(ctx, email, issued, accesskey.KindSignup)
	s.log.Record(ctx, u.ID, audit.EventKeyIssued, "Access key generated and dispatched.",
		map[string]any{"kind": string(accesskey.KindSignup)})

	return &Grant{CipherKey: issued.CipherKey, Shift: issued.Shift, ExpiresAt: issued.ExpiresAt}, nil
}

// VerifyKey checks a decoded signup key without consuming it, so the client
// can advance to the password step and still retry on a typo.
func (s *Service) VerifyKey(ctx context.Context, email, key string) error {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	_, err := s.keys.Verify(ctx, email, accesskey.KindSignup, strings.TrimSpace(key))
	return err
}

// CompleteSignup sets the asset's credentials and consumes the live signup
// key in the same transaction. Requires a usable key on record: without
// one, the password never gets set, so the gate cannot be skipped.
func (s *Service) CompleteSignup(ctx context.Context, email, password, displayName, question, answer string) (string, *User, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return "", nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return "", nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return "", nil, fmt.Errorf("%w: security question and answer are required", ErrInvalidInput)
	}

	u, err := NewPGRepository(s.db).FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u.Provisioned() {
		return "", nil, ErrAlreadyProvisioned
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return "", nil, err
	}
	answerHash, err := auth.HashPassword(normalizeAnswer(answer))
	if err != nil {
		return "", nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := NewPGRepository(tx)
		current, err := users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if current.Provisioned() {
			return ErrAlreadyProvisioned
		}
		if err := s.keys.ConsumeNewest(ctx, tx, email, accesskey.KindSignup); err != nil {
			return err
		}
		if err := users.SetCredentials(ctx, current.ID, passwordHash, strings.TrimSpace(displayName), question, answerHash); err != nil {
			return err
		}
		return s.log.RecordTx(ctx, tx, current.ID, audit.EventSignup,
			"Asset clearance profile established.", nil)
	})
	if err != nil {
		return "", nil, err
	}

	refreshed, err := NewPGRepository(s.db).FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	token, _, err := s.tokens.Issue(refreshed.ID, refreshed.Email, refreshed.ClearanceLevel)
	if err != nil {
		return "", nil, err
	}
	return token, refreshed, nil
}

// Login authenticates an asset. The same error covers a missing account
// and a wrong password; an unprovisioned account is called out so the
// client can route back into signup.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return "", nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if password == "" {
		return "", nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	repo := NewPGRepository(s.db)
	u, err := repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return "", nil, ErrBadCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !u.Provisioned() {
		return "", nil, ErrNotProvisioned
	}
	if auth.VerifyPassword(u.PasswordHash, password) != nil {
		return "", nil, ErrBadCredentials
	}

	// The login timestamp reseeds the mission oracle, so stamp it before
	// anything downstream derives an answer.
	if err := repo.TouchLogin(ctx, u.ID); err != nil {
		return "", nil, err
	}
	s.log.Record(ctx, u.ID, audit.EventLogin, "Asset authenticated via gate.", nil)

	refreshed, err := repo.Find(ctx, u.ID)
	if err != nil {
		return "", nil, err
	}
	token, _, err := s.tokens.Issue(refreshed.ID, refreshed.Email, refreshed.ClearanceLevel)
	if err != nil {
		return "", nil, err
	}
	return token, refreshed, nil
}

// RequestReset returns the asset's security question. Unknown emails get a
// deterministic decoy question in an identically shaped response, so the
// endpoint leaks nothing about which accounts exist. No key is issued yet.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}

	u, err := NewPGRepository(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decoyQuestion(email), nil
		}
		return "", err
	}
	if !u.Provisioned() || u.SecurityQuestion == "" {
		return decoyQuestion(email), nil
	}

	s.log.Record(ctx, u.ID, audit.EventResetRequest, "Reset protocol engaged.", nil)
	return u.SecurityQuestion, nil
}

// VerifyResetAnswer checks the security answer and, on a match, issues a
// reset key and returns its plaintext. This response is the one place a
// plain key crosses the wire: the caller just proved account ownership,
// and the key is single-use and short-lived.
func (s *Service) VerifyResetAnswer(ctx context.Context, email, answer string) (string, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}

	u, err := NewPGRepository(s.db).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return "", ErrBadSecurityAnswer
	}
	if err != nil {
		return "", err
	}
	if u.SecurityAnswerHash == "" || auth.VerifyPassword(u.SecurityAnswerHash, normalizeAnswer(answer)) != nil {
		return "", ErrBadSecurityAnswer
	}

	issued, err := s.keys.Issue(ctx, email, accesskey.KindReset)
	if err != nil {
		return "", err
	}
	s.dispatchKey(ctx, email, issued, accesskey.KindReset)
	s.log.Record(ctx, u.ID, audit.EventKeyIssued, "Reset key generated and dispatched.",
		map[string]any{"kind": string(accesskey.KindReset)})
	return issued.PlainKey, nil
}

// CompleteReset verifies the reset key and swaps the password, consuming
// the key in the same transaction as the password write.
func (s *Service) CompleteReset(ctx context.Context, email, key, password string) error {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	u, err := NewPGRepository(s.db).FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	verified, err := s.keys.Verify(ctx, email, accesskey.KindReset, strings.TrimSpace(key))
	if err != nil {
		return err
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := NewPGRepository(tx).UpdatePassword(ctx, u.ID, passwordHash); err != nil {
			return err
		}
		if err := s.keys.Consume(ctx, tx, verified.ID); err != nil {
			return err
		}
		return s.log.RecordTx(ctx, tx, u.ID, audit.EventResetComplete,
			"Clearance phrase rotated.", nil)
	})
}

// Me returns the current identity snapshot.
func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	return NewPGRepository(s.db).Find(ctx, userID)
}

// UpdateSettings applies profile changes. Nil fields are left untouched.
func (s *Service) UpdateSettings(ctx context.Context, userID string, displayName, motto *string) error {
	if displayName == nil && motto == nil {
		return nil
	}
	if err := NewPGRepository(s.db).UpdateProfile(ctx, userID, displayName, motto); err != nil {
		return err
	}
	s.log.Record(ctx, userID, audit.EventProfileUpdate, "Asset profile updated.", nil)
	return nil
}

// dispatchKey emails the plaintext key. Delivery is best-effort: the gate
// response already carries the ciphered key, so a relay outage must not
// fail the request.
func (s *Service) dispatchKey(ctx context.Context, email string, issued *accesskey.Issued, kind accesskey.Kind) {
	if s.mail == nil {
		return
	}
	ttl := time.Until(issued.ExpiresAt)
	var subject, body string
	if kind == accesskey.KindReset {
		subject, body = mailer.ResetKeyEmail(issued.PlainKey, ttl)
	} else {
		subject, body = mailer.AccessKeyEmail(issued.PlainKey, ttl)
	}
	if err := s.mail.Send(ctx, email, subject, body); err != nil {
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339),
			"level": "warn",
			"msg":   "key email failed",
			"error": err.Error(),
		})
	}
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func decoyQuestion(email string) string {
	seed := 0
	for _, ch := range email {
		seed += int(ch)
	}
	return decoyQuestions[seed%len(decoyQuestions)]
}
