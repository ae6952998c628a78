// Package token generates and validates single-use action tokens for
// self-service cancel and reschedule links.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	ActionCancel     = "cancel"
	ActionReschedule = "reschedule"

	// 32 random bytes, well past the point where guessing is practical.
	entropyBytes = 32
)

// New returns a fresh opaque token, URL-safe so it can be embedded in an
// action link path without escaping.
func New() (string, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func ValidAction(action string) bool {
	return action == ActionCancel || action == ActionReschedule
}
