package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
)

const SignatureHeader = "x-paystack-signature"

var ErrInvalidSignature = errors.New("invalid signature")

// Sign returns the hex HMAC-SHA512 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC of the exact raw body.
// An empty secret rejects everything.
func VerifySignature(secret, body []byte, header string) error {
	if len(secret) == 0 {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimSpace(header))
	if err != nil || len(got) != sha512.Size {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
