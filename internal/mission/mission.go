// Package mission derives per-user mission answers, checks submissions, and
// records completions exactly once. Answers are never stored: the oracle
// recomputes them on demand from stable user facts, so a packet rendered
// yesterday still checks today as long as the user has not logged in again.
package mission

import (
	"regexp"
	"time"
)

// Supported mission ids.
const (
	StarterProtocolID = "starter-protocol-01"
	Initiate001ID     = "initiate-001-packet-parse"
)

// Definition fixes the answer format and operator-facing messages for one
// mission. The shape is checked before the oracle is ever consulted.
type Definition struct {
	ID         string
	Title      string
	shape      *regexp.Regexp
	ShapeHint  string // returned when the answer fails the shape check
	RetryHint  string // returned on a well-formed but wrong answer
	ignoreCase bool
}

var catalog = map[string]Definition{
	StarterProtocolID: {
		ID:         StarterProtocolID,
		Title:      "Starter Protocol // INITIATE-01",
		shape:      regexp.MustCompile(`^[Ss][Ii][Gg]-[0-9A-Fa-f]{10}$`),
		ShapeHint:  "Response format invalid. Expected the full beacon, SIG- included.",
		RetryHint:  "Incorrect answer. Re-check the Event Stream.",
		ignoreCase: true,
	},
	Initiate001ID: {
		ID:        Initiate001ID,
		Title:     "INITIATE-001 // PACKET PARSE",
		shape:     regexp.MustCompile(`^\d{6}$`),
		ShapeHint: "Response format invalid. Expected the 6-digit NONCE.",
		RetryHint: "Incorrect NONCE. Re-parse the packet and copy it exactly.",
	},
}

// Lookup returns the definition for a mission id.
func Lookup(id string) (Definition, bool) {
	d, ok := catalog[id]
	return d, ok
}

// WellFormed reports whether a submitted answer matches the mission's
// required shape.
func (d Definition) WellFormed(answer string) bool {
	return d.shape.MatchString(answer)
}

// Completion is one row of the completion ledger. The (UserID, MissionID)
// pair is unique; re-submitting a completed mission never adds a row.
type Completion struct {
	UserID      string
	MissionID   string
	Success     bool
	CompletedAt time.Time
}
