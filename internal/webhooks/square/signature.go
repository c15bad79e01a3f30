package squarewebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries Square's HMAC-SHA256 webhook signature.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

// Sign computes the signature Square sends for a payload delivered to notificationURL.
func Sign(payload []byte, notificationURL, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the expected signature in constant time.
func VerifySignature(payload []byte, notificationURL, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	expected := Sign(payload, notificationURL, secret)
	return hmac.Equal([]byte(expected), []byte(header))
}
