package mission

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/asset"
)

// Oracle derives mission answers from stable per-user facts keyed by a
// server-held secret. The seed timestamp is the last successful login
// (creation time before the first login), so an answer stays stable across
// page loads and changes on the next login.
type Oracle struct {
	secret []byte
	now    func() time.Time
}

// OracleOption customises an Oracle.
type OracleOption func(*Oracle)

// WithOracleClock overrides the packet timestamp source. Tests use it; the
// derived answers do not depend on it.
func WithOracleClock(now func() time.Time) OracleOption {
	return func(o *Oracle) { o.now = now }
}

func NewOracle(secret string, opts ...OracleOption) *Oracle {
	o := &Oracle{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func seedTime(u *asset.User) time.Time {
	if u.LastLoginAt != nil {
		return *u.LastLoginAt
	}
	return u.CreatedAt
}

func (o *Oracle) digest(u *asset.User, suffix string) string {
	base := u.ID + "|" + u.Email + "|" + seedTime(u).UTC().Format(time.RFC3339)
	if suffix != "" {
		base += "|" + suffix
	}
	mac := hmac.New(sha256.New, o.secret)
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// Beacon is the expected answer for the starter protocol: a short signal
// tag surfaced once in the orientation event stream.
func (o *Oracle) Beacon(u *asset.User) string {
	return "SIG-" + strings.ToUpper(o.digest(u, "")[:10])
}

// PacketNoise carries the decoy fields of an intercepted packet. All of it
// is derived and deterministic, and none of it is ever checked.
type PacketNoise struct {
	JitterMS int    `json:"jitter_ms"`
	ECC      string `json:"ecc"`
	Relay    string `json:"relay"`
	Padding  string `json:"padding"`
}

// PacketPayload tells the operator what to extract.
type PacketPayload struct {
	Op     string            `json:"op"`
	Target string            `json:"target"`
	Note   string            `json:"note"`
	Rules  map[string]string `json:"rules"`
}

// Packet is the intercepted frame rendered for the packet-parse mission.
// Only Nonce is the answer; everything else is context or noise.
type Packet struct {
	Proto   string        `json:"proto"`
	Channel string        `json:"channel"`
	Frame   string        `json:"frame"`
	Route   string        `json:"route"`
	TSUTC   string        `json:"ts_utc"`
	Seq     string        `json:"seq"`
	Nonce   string        `json:"nonce"`
	Noise   PacketNoise   `json:"noise"`
	Payload PacketPayload `json:"payload"`
}

// Initiate001 derives the packet-parse mission: the nonce is the expected
// answer, and the surrounding fields come from later slices of the same
// digest so they look related without revealing anything.
func (o *Oracle) Initiate001(u *asset.User) (nonce string, pkt Packet) {
	hexDigest := o.digest(u, "INITIATE_001")

	n, _ := strconv.ParseUint(hexDigest[:12], 16, 64)
	nonce = fmt.Sprintf("%06d", n%1_000_000)

	jitter, _ := strconv.ParseUint(hexDigest[18:20], 16, 64)

	pkt = Packet{
		Proto:   "BG/1.0",
		Channel: "BLACK_GLASS",
		Frame:   "HANDSHAKE",
		Route:   "C2/ORIENT",
		TSUTC:   o.now().UTC().Format(time.RFC3339),
		Seq:     strings.ToUpper(hexDigest[12:18]),
		Nonce:   nonce,
		Noise: PacketNoise{
			JitterMS: int(jitter%27) + 3,
			ECC:      strings.ToUpper(hexDigest[20:28]),
			Relay:    "RLY-" + strings.ToUpper(hexDigest[28:32]),
			Padding:  hexDigest[32:48],
		},
		Payload: PacketPayload{
			Op:     "CHALLENGE",
			Target: "ASSET_VALIDATION",
			Note:   "Parse only what you are instructed to parse. Ignore noise.",
			Rules: map[string]string{
				"response": "submit the NONCE exactly as shown (6 digits)",
			},
		},
	}
	return nonce, pkt
}

// Expected returns the answer the oracle would accept for a mission. The
// answer is canonical form: comparison still has to respect the mission's
// case rules.
func (o *Oracle) Expected(u *asset.User, missionID string) (string, error) {
	switch missionID {
	case StarterProtocolID:
		return o.Beacon(u), nil
	case Initiate001ID:
		nonce, _ := o.Initiate001(u)
		return nonce, nil
	default:
		return "", ErrUnknownMission
	}
}

// Check compares a well-formed submission with the expected answer in
// constant time.
func (d Definition) Check(submitted, expected string) bool {
	if d.ignoreCase {
		submitted = strings.ToUpper(submitted)
		expected = strings.ToUpper(expected)
	}
	return hmac.Equal([]byte(submitted), []byte(expected))
}
