package asset

import "time"

// User is an "asset": an account on the lab console. A user exists from the
// first access-key request onward; the password hash stays empty until
// signup is finalized, and a user without one cannot authenticate.
type User struct {
	ID                   string
	Email                string
	PasswordHash         string
	DisplayName          string
	Motto                string
	ClearanceLevel       string // cache of clearance.ForCount(...).Label()
	ClearanceProgressPct int
	SecurityQuestion     string
	SecurityAnswerHash   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	LastLoginAt          *time.Time
}

// Provisioned reports whether signup has been finalized for this user.
func (u *User) Provisioned() bool {
	return u != nil && u.PasswordHash != ""
}

var sectors = [...]string{
	"CRYPTOGRAPHY DIVISION",
	"SIGNAL INTELLIGENCE",
	"ARCHIVE OPERATIONS",
	"FIELD SYSTEMS",
	"SIMULATION LAB",
	"BLACK VAULT",
}

// Sector derives the display sector for a user. It is never stored; the
// same user always maps to the same sector.
func (u *User) Sector() string {
	seed := 0
	for _, ch := range u.ID + u.Email {
		seed += int(ch)
	}
	return sectors[seed%len(sectors)]
}
