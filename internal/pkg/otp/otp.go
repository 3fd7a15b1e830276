package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Generate returns a zero-padded 6-digit code drawn uniformly
// from 000000–999999 using crypto/rand.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
