// Package initdata verifies the initData payload a Telegram mini-app host
// hands to the embedded web application.
//
// The signature is HMAC-SHA256 over the check string, keyed by
// HMAC-SHA256("WebAppData", botToken). Verification is a pure function of
// the token and the raw payload and is safe for concurrent use.
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// secretKeyLabel keys the first HMAC stage.
const secretKeyLabel = "WebAppData"

// Result is the outcome of a well-formed verification.
type Result struct {
	// Valid reports whether Computed matches Received.
	Valid bool
	// Computed is the signature recomputed from the payload.
	Computed string
	// Received is the signature carried in the hash field.
	Received string
	// CheckString is the exact message that was signed.
	CheckString string
	// Payload is the decoded payload.
	Payload *Payload
}

// Verify checks the hash embedded in rawPayload against botToken. It fails
// with ErrMalformedPayload or ErrEncoding when the payload cannot be
// processed; a mismatch is reported through Result.Valid, not as an error.
func Verify(botToken, rawPayload string) (*Result, error) {
	p, err := Parse(rawPayload)
	if err != nil {
		return nil, err
	}

	received, ok := p.Hash()
	if !ok {
		return nil, malformed("", errors.New("hash field not present"))
	}

	checkString := p.CheckString()
	computed := ComputeSignature(botToken, checkString)

	return &Result{
		Valid:       hmac.Equal([]byte(computed), []byte(received)),
		Computed:    computed,
		Received:    received,
		CheckString: checkString,
		Payload:     p,
	}, nil
}

// SecretKey derives the 32-byte per-bot key.
func SecretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(secretKeyLabel))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// ComputeSignature returns the lowercase hex signature of checkString.
func ComputeSignature(botToken, checkString string) string {
	mac := hmac.New(sha256.New, SecretKey(botToken))
	mac.Write([]byte(checkString))
	return hex.EncodeToString(mac.Sum(nil))
}
