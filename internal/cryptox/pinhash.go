package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// PIN hashing for the pairing Response message. The transported value is the
// 49-byte encoding version(0x01) || salt(16) || hash(32), where hash is
// Argon2id(pin, salt) with fixed cost parameters. No other password-hashing
// algorithm is permitted here.

const (
	pinHashVersion  = 0x01
	pinSaltLen      = 16
	pinHashLen      = 32
	PinHashEncoding = 1 + pinSaltLen + pinHashLen

	pinArgonMemKiB      = 64 * 1024
	pinArgonIters       = 3
	pinArgonParallelism = 4
)

// HashPin hashes a zero-padded 6-digit PIN with a fresh random salt and
// returns the 49-byte transportable encoding.
func HashPin(pin string) ([]byte, error) {
	salt := make([]byte, pinSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("read pin salt: %w", err)
	}
	return hashPinWithSalt(pin, salt), nil
}

// VerifyPin recomputes the hash from the salt embedded in encoded and
// compares in constant time.
func VerifyPin(pin string, encoded []byte) bool {
	if len(encoded) != PinHashEncoding || encoded[0] != pinHashVersion {
		return false
	}
	salt := encoded[1 : 1+pinSaltLen]
	expected := hashPinWithSalt(pin, salt)
	return subtle.ConstantTimeCompare(expected, encoded) == 1
}

func hashPinWithSalt(pin string, salt []byte) []byte {
	hash := argon2.IDKey([]byte(pin), salt, pinArgonIters, pinArgonMemKiB, pinArgonParallelism, pinHashLen)
	out := make([]byte, 0, PinHashEncoding)
	out = append(out, pinHashVersion)
	out = append(out, salt...)
	out = append(out, hash...)
	return out
}

// NewPin draws a random zero-padded 6-decimal-digit PIN.
func NewPin() (string, error) {
	var b [4]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return "", fmt.Errorf("read pin: %w", err)
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}
