package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// Sign returns the lower-case hex HMAC-SHA256 of message under secret.
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidHMAC compares the supplied hex signature with the expected one in
// constant time. It fails closed on an empty secret or signature.
func ValidHMAC(canonical, secret, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	expected := Sign(secret, canonical)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// VerifyQuery checks the hmac parameter of a callback query.
func VerifyQuery(params url.Values, secret string) bool {
	return ValidHMAC(Canonicalize(params), secret, params.Get("hmac"))
}
