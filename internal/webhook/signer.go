// Package webhook implements outbound delivery of completed ledger events:
// HMAC signing and a background worker that drains the transactional
// outbox with bounded retry.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of body using secret, in the
// "sha256=<hex>" form sent as X-Webhook-Signature.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the expected HMAC of body under
// secret, in constant time. Exposed for tenants validating deliveries and
// for the worker's own tests.
func Verify(body []byte, secret, signature string) bool {
	want := Sign(body, secret)
	return subtle.ConstantTimeCompare([]byte(want), []byte(signature)) == 1
}
