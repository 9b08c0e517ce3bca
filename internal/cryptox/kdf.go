package cryptox

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/uniclip/uniclipboard/internal/models"
)

// SaltLen is the byte length of KDF salts.
const SaltLen = 16

// NewSalt draws a fresh 16-byte salt from the CSPRNG.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	return salt, nil
}

// DeriveKek derives the 32-byte key-encryption key from a passphrase with
// Argon2id. Pure in its inputs; the same passphrase, salt, and parameters
// always yield the same KEK.
func DeriveKek(passphrase string, salt []byte, params models.KdfParams) (models.Kek, error) {
	if params.Alg != models.KdfArgon2id {
		return models.Kek{}, fmt.Errorf("unsupported kdf %q", params.Alg)
	}
	if len(salt) != SaltLen {
		return models.Kek{}, fmt.Errorf("salt must be %d bytes, got %d", SaltLen, len(salt))
	}
	raw := argon2.IDKey([]byte(passphrase), salt, params.Iters, params.MemKiB, params.Parallelism, models.KeyLen)
	return models.NewKek(raw)
}

// NewRandomMasterKey draws a fresh 32-byte master key from the CSPRNG.
func NewRandomMasterKey() (models.MasterKey, error) {
	raw := make([]byte, models.KeyLen)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return models.MasterKey{}, fmt.Errorf("read master key: %w", err)
	}
	return models.NewMasterKey(raw)
}
