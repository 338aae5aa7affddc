package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header the provider puts its HMAC into.
const SignatureHeader = "X-Provider-Signature"

// VerifySignature checks the provider HMAC-SHA512 over the exact raw request
// body. It must run on the bytes as received — re-serializing a parsed payload
// is not guaranteed to reproduce the original stream. Returns false (never
// errors) on missing secret, missing header, or mismatch.
func VerifySignature(rawBody []byte, signatureHeader, secret string) bool {
	if secret == "" || strings.TrimSpace(signatureHeader) == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	want := mac.Sum(nil)

	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signatureHeader)))
	if err != nil {
		return false
	}

	return hmac.Equal(want, got)
}

// SignBody produces the hex signature for a body. Used by tests and local
// tooling to build valid webhook requests.
func SignBody(rawBody []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
