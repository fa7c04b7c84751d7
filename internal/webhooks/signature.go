package webhooks

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex HMAC-SHA256 of the delivery body, computed
// with the subscription secret over the exact bytes posted.
const SignatureHeader = "X-Webhook-Signature"

// DeliveryHeader carries a unique ID per delivery attempt.
const DeliveryHeader = "X-Webhook-Delivery"

// Sign returns the hex-encoded HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether sig is a valid signature of body. Receivers
// use the same computation; kept here so tests and any internal consumers
// share one implementation.
func VerifySignature(secret string, body []byte, sig string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(sig))
}

// NewSecret generates a webhook signing secret. Returned to the registrant
// exactly once at creation time.
func NewSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return hex.EncodeToString(buf)
}
