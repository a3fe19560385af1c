package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// VerificationCodeLength is the length of ticket check-in codes.
const VerificationCodeLength = 12

// GenerateVerificationCode returns a short upper-cased hex code used for
// venue-side ticket check-in. Codes are random, not derived from the
// ticket id, so they cannot be guessed from sequential ids.
func GenerateVerificationCode() (string, error) {
	return GenerateCode(VerificationCodeLength)
}

// GenerateCode returns an upper-cased hex string of exactly n characters.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, (n+1)/2)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	s := strings.ToUpper(hex.EncodeToString(byt))
	return s[:n], nil
}
