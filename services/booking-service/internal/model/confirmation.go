package model

import (
	"crypto/rand"
	"fmt"
)

// Unambiguous alphabet: no 0/O, 1/I/L. Confirmation numbers get read out
// loud over the phone.
const confirmationAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// NewConfirmationNumber returns a short human-friendly reference like
// BB-7KQ2MX. Not a secret; uniqueness is enforced by the database.
func NewConfirmationNumber() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = confirmationAlphabet[int(b)%len(confirmationAlphabet)]
	}
	return "BB-" + string(code), nil
}
