package asset

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/JasonCodez/kryptyk-labs/internal/accesskey"
	"github.com/JasonCodez/kryptyk-labs/internal/audit"
	"github.com/JasonCodez/kryptyk-labs/internal/auth"
	"github.com/JasonCodez/kryptyk-labs/internal/cipher"
)

const (
	gateEmail = "asset@kryptyklabs.example"
	gateUID   = "01HZXK4R8MT9QW2E5N7YB3VD6A"
)

func newGateService(t *testing.T, db *sql.DB) *Service {
	t.Helper()
	tokens, err := auth.NewService("test-secret")
	require.NoError(t, err)
	return NewService(db, accesskey.NewService(db), tokens, nil, audit.NewRecorder(db, nil))
}

func gateUserRows(passwordHash, answerHash string) *sqlmock.Rows {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "display_name", "motto",
		"clearance_level", "clearance_progress_pct",
		"security_question", "security_answer_hash",
		"created_at", "updated_at", "last_login_at",
	}).AddRow(
		gateUID, gateEmail, passwordHash, "", "",
		"INITIATE-0", 0,
		"What was the callsign of your first handler?", answerHash,
		now, now, nil,
	)
}

func noUser() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "display_name", "motto",
		"clearance_level", "clearance_progress_pct",
		"security_question", "security_answer_hash",
		"created_at", "updated_at", "last_login_at",
	})
}

func liveKeyRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("042597"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "email", "key_hash", "kind", "created_at", "expires_at", "used", "used_at", "attempts",
	}).AddRow("01KEY", gateEmail, string(hash), "signup", now, now.Add(15*time.Minute), false, nil, 0)
}

func TestRequestAccessCreatesUserLazily(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateEmail).
		WillReturnRows(noUser())
	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), gateEmail, "INITIATE-0", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectBegin()
	mock.ExpectExec("update access_keys").
		WithArgs(gateEmail, "signup").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into access_keys").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectExec("insert into asset_access_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	grant, err := newGateService(t, db).RequestAccess(context.Background(), "  Asset@KryptykLabs.example ")
	require.NoError(t, err)
	require.Regexp(t, `^\d{6}$`, grant.CipherKey)
	require.GreaterOrEqual(t, grant.Shift, 0)
	require.LessOrEqual(t, grant.Shift, 9)

	// The grant must be decodable by the client-side puzzle.
	_, err = cipher.Decode(grant.CipherKey, grant.Shift)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestAccessCreateRaceUsesWinningRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateEmail).
		WillReturnRows(noUser())
	// A concurrent request inserted the row first.
	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateEmail).
		WillReturnRows(gateUserRows("", ""))

	mock.ExpectBegin()
	mock.ExpectExec("update access_keys").
		WithArgs(gateEmail, "signup").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into access_keys").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// The trail entry must carry the winner's id, not the discarded one.
	mock.ExpectExec("insert into asset_access_logs").
		WithArgs(gateUID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err = newGateService(t, db).RequestAccess(context.Background(), gateEmail)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestAccessRefusesProvisionedAsset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateEmail).
		WillReturnRows(gateUserRows("$2a$10$existinghash", ""))

	_, err = newGateService(t, db).RequestAccess(context.Background(), gateEmail)
	require.ErrorIs(t, err, ErrAlreadyProvisioned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestAccessRejectsMalformedEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, email := range []string{"", "nope", "a@b", "spaced @example.com"} {
		_, err := newGateService(t, db).RequestAccess(context.Background(), email)
		require.ErrorIs(t, err, ErrInvalidInput, "email %q", email)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSignupConsumesKeyWithCredentials(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateEmail).
		WillReturnRows(gateUserRows("", ""))

	mock.ExpectBegin()
	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateEmail).
		WillReturnRows(gateUserRows("", ""))
	mock.ExpectQuery("select id, email, key_hash").
		WithArgs(gateEmail, "signup").
		WillReturnRows(liveKeyRows(t))
	mock.ExpectExec("update access_keys set used = true").
		WithArgs("01KEY").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update users").
		WithArgs(sqlmock.AnyArg(), "Cipher Nine", "What city?", sqlmock.AnyArg(), gateUID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into asset_access_logs").
		WithArgs(gateUID, audit.EventSignup, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	provisionedHash, err := auth.HashPassword("hunter2hunter2")
	require.NoError(t, err)
	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateEmail).
		WillReturnRows(gateUserRows(provisionedHash, ""))

	token, u, err := newGateService(t, db).CompleteSignup(
		context.Background(), gateEmail, "hunter2hunter2", "Cipher Nine", "What city?", "Prague")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, gateUID, u.ID)
	assert.True(t, u.Provisioned())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSignupRequiresLiveKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select id, email, coalesce").
		WillReturnRows(gateUserRows("", ""))
	mock.ExpectBegin()
	mock.ExpectQuery("select id, email, coalesce").
		WillReturnRows(gateUserRows("", ""))
	mock.ExpectQuery("select id, email, key_hash").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "key_hash", "kind", "created_at", "expires_at", "used", "used_at", "attempts",
		}))
	mock.ExpectRollback()

	_, _, err = newGateService(t, db).CompleteSignup(
		context.Background(), gateEmail, "hunter2hunter2", "", "What city?", "Prague")
	require.ErrorIs(t, err, accesskey.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSignupRejectsShortPassword(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, _, err = newGateService(t, db).CompleteSignup(
		context.Background(), gateEmail, "short", "", "Q", "A")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompleteSignupRefusesProvisionedAsset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := auth.HashPassword("alreadyset123")
	require.NoError(t, err)
	mock.ExpectQuery("select id, email, coalesce").
		WillReturnRows(gateUserRows(hash, ""))

	_, _, err = newGateService(t, db).CompleteSignup(
		context.Background(), gateEmail, "hunter2hunter2", "", "Q", "A")
	require.ErrorIs(t, err, ErrAlreadyProvisioned)
}

func TestLoginHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := auth.HashPassword("hunter2hunter2")
	require.NoError(t, err)

	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateEmail).
		WillReturnRows(gateUserRows(hash, ""))
	mock.ExpectExec("update users set last_login_at").
		WithArgs(gateUID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into asset_access_logs").
		WithArgs(gateUID, audit.EventLogin, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("select id, email, coalesce").
		WithArgs(gateUID).
		WillReturnRows(gateUserRows(hash, ""))

	token, u, err := newGateService(t, db).Login(context.Background(), gateEmail, "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, gateEmail, u.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginHidesWhichFieldWasWrong(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := newGateService(t, db)

	// Unknown account.
	mock.ExpectQuery("select id, email, coalesce").WillReturnRows(noUser())
	_, _, err = svc.Login(context.Background(), gateEmail, "whatever123")
	require.ErrorIs(t, err, ErrBadCredentials)

	// Wrong password for a real account: same error.
	hash, err := auth.HashPassword("rightpassword")
	require.NoError(t, err)
	mock.ExpectQuery("select id, email, coalesce").WillReturnRows(gateUserRows(hash, ""))
	_, _, err = svc.Login(context.Background(), gateEmail, "wrongpassword")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestLoginUnprovisionedAsset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select id, email, coalesce").WillReturnRows(gateUserRows("", ""))
	_, _, err = newGateService(t, db).Login(context.Background(), gateEmail, "whatever123")
	require.ErrorIs(t, err, ErrNotProvisioned)
}

func TestRequestResetNeverLeaksExistence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := newGateService(t, db)

	// Unknown email: deterministic decoy question, no error.
	mock.ExpectQuery("select id, email, coalesce").WillReturnRows(noUser())
	q1, err := svc.RequestReset(context.Background(), "ghost@kryptyklabs.example")
	require.NoError(t, err)
	require.NotEmpty(t, q1)

	mock.ExpectQuery("select id, email, coalesce").WillReturnRows(noUser())
	q2, err := svc.RequestReset(context.Background(), "ghost@kryptyklabs.example")
	require.NoError(t, err)
	assert.Equal(t, q1, q2, "decoy question must be stable per email")

	// Known provisioned email: the real question, same shape.
	hash, err := auth.HashPassword("somepassword1")
	require.NoError(t, err)
	mock.ExpectQuery("select id, email, coalesce").WillReturnRows(gateUserRows(hash, "$2a$10$answerhash"))
	mock.ExpectExec("insert into asset_access_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	q3, err := svc.RequestReset(context.Background(), gateEmail)
	require.NoError(t, err)
	assert.Equal(t, "What was the callsign of your first handler?", q3)
}

func TestVerifyResetAnswerIssuesKeyOnMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	answerHash, err := auth.HashPassword("prague")
	require.NoError(t, err)
	passwordHash, err := auth.HashPassword("somepassword1")
	require.NoError(t, err)

	mock.ExpectQuery("select id, email, coalesce").
		WillReturnRows(gateUserRows(passwordHash, answerHash))
	mock.ExpectBegin()
	mock.ExpectExec("update access_keys").
		WithArgs(gateEmail, "reset").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into access_keys").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec("insert into asset_access_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Answer comparison is case- and whitespace-insensitive.
	key, err := newGateService(t, db).VerifyResetAnswer(context.Background(), gateEmail, "  Prague ")
	require.NoError(t, err)
	require.Regexp(t, `^\d{6}$`, key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyResetAnswerRejectsMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	answerHash, err := auth.HashPassword("prague")
	require.NoError(t, err)

	svc := newGateService(t, db)

	mock.ExpectQuery("select id, email, coalesce").
		WillReturnRows(gateUserRows("$2a$10$pw", answerHash))
	_, err = svc.VerifyResetAnswer(context.Background(), gateEmail, "vienna")
	require.ErrorIs(t, err, ErrBadSecurityAnswer)

	// Unknown account gets the same error, not a 404.
	mock.ExpectQuery("select id, email, coalesce").WillReturnRows(noUser())
	_, err = svc.VerifyResetAnswer(context.Background(), "ghost@kryptyklabs.example", "prague")
	require.ErrorIs(t, err, ErrBadSecurityAnswer)
}

func TestCompleteResetSwapsPasswordAndConsumesKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	passwordHash, err := auth.HashPassword("oldpassword1")
	require.NoError(t, err)

	mock.ExpectQuery("select id, email, coalesce").
		WillReturnRows(gateUserRows(passwordHash, ""))
	mock.ExpectQuery("select id, email, key_hash").
		WithArgs(gateEmail, "reset").
		WillReturnRows(liveKeyRows(t))
	mock.ExpectBegin()
	mock.ExpectExec("update users set password_hash").
		WithArgs(sqlmock.AnyArg(), gateUID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update access_keys set used = true").
		WithArgs("01KEY").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into asset_access_logs").
		WithArgs(gateUID, audit.EventResetComplete, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = newGateService(t, db).CompleteReset(context.Background(), gateEmail, "042597", "newpassword1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
