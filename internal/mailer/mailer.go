// Package mailer dispatches access keys out of band. The key travels by
// email only; HTTP responses carry the ciphered form at most.
package mailer

import (
	"context"
	"fmt"
	"time"
)

// Sender delivers a rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

const keyTemplate = `<div style="font-family: monospace; padding: 20px;">
  <h2>Kryptyk Labs // %s</h2>
  <p>%s</p>
  <div style="font-size: 28px; letter-spacing: 4px; font-weight: bold; margin: 20px 0;">%s</div>
  <p>This key expires in %d minutes.</p>
</div>`

// AccessKeyEmail renders the signup key message.
func AccessKeyEmail(key string, ttl time.Duration) (subject, body string) {
	subject = "Kryptyk Labs Access Key"
	body = fmt.Sprintf(keyTemplate, "Access Key", "Your verification key is:", key, int(ttl.Minutes()))
	return subject, body
}

// ResetKeyEmail renders the reset key message.
func ResetKeyEmail(key string, ttl time.Duration) (subject, body string) {
	subject = "Kryptyk Labs Reset Key"
	body = fmt.Sprintf(keyTemplate, "Reset Protocol", "Your clearance reset key is:", key, int(ttl.Minutes()))
	return subject, body
}
