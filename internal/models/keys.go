package models

import "fmt"

// KeyScope namespaces key material. Currently one scope per profile.
type KeyScope struct {
	ProfileID string
}

// String renders the external identifier form, e.g. "profile:default".
func (s KeyScope) String() string {
	return "profile:" + s.ProfileID
}

// AeadAlg names the AEAD used for an EncryptedBlob.
type AeadAlg string

const AeadXChaCha20Poly1305 AeadAlg = "xchacha20poly1305"

// EncryptedBlobVersion is the on-disk/wire version of EncryptedBlob.
const EncryptedBlobVersion = 1

// EncryptedBlob is the envelope for every ciphertext the system produces,
// on disk and on the wire. AadFingerprint is diagnostic only; decryption
// recomputes the AAD from context and ignores the stored fingerprint.
type EncryptedBlob struct {
	Version        int     `json:"version"`
	Aead           AeadAlg `json:"aead"`
	Nonce          []byte  `json:"nonce"`
	Ciphertext     []byte  `json:"ciphertext"`
	AadFingerprint []byte  `json:"aad_fingerprint,omitempty"`
}

// KdfAlg names the password KDF. Only Argon2id is permitted.
type KdfAlg string

const KdfArgon2id KdfAlg = "argon2id"

// KdfParams carries the Argon2id cost parameters stored in a KeySlot.
type KdfParams struct {
	Alg         KdfAlg `json:"alg"`
	MemKiB      uint32 `json:"mem_kib"`
	Iters       uint32 `json:"iters"`
	Parallelism uint8  `json:"parallelism"`
}

// DefaultKdfParams are the cost parameters for newly created key slots.
func DefaultKdfParams() KdfParams {
	return KdfParams{Alg: KdfArgon2id, MemKiB: 64 * 1024, Iters: 3, Parallelism: 4}
}

// KeySlotVersion is the supported KeySlot format version.
const KeySlotVersion = "v1"

// KeySlotFile is the persistent record carrying KDF parameters, salt, and
// the wrapped master key; one per scope.
type KeySlotFile struct {
	Version          string         `json:"version"`
	Scope            string         `json:"scope"`
	Kdf              KdfParams      `json:"kdf"`
	Salt             []byte         `json:"salt"`
	WrappedMasterKey *EncryptedBlob `json:"wrapped_master_key,omitempty"`
	CreatedAt        string         `json:"created_at,omitempty"`
	UpdatedAt        string         `json:"updated_at,omitempty"`
}

// KeyLen is the byte length of MasterKey and Kek.
const KeyLen = 32

// MasterKey is the 32-byte data-encryption key shared across a space. It is
// never serialized to disk in plaintext and redacts itself in debug output.
type MasterKey struct {
	b [KeyLen]byte
}

// NewMasterKey copies b into a MasterKey. b must be exactly KeyLen bytes.
func NewMasterKey(b []byte) (MasterKey, error) {
	var mk MasterKey
	if len(b) != KeyLen {
		return mk, fmt.Errorf("master key must be %d bytes, got %d", KeyLen, len(b))
	}
	copy(mk.b[:], b)
	return mk, nil
}

// Bytes returns a copy of the key material.
func (k MasterKey) Bytes() []byte {
	out := make([]byte, KeyLen)
	copy(out, k.b[:])
	return out
}

func (k MasterKey) String() string   { return "MasterKey(redacted)" }
func (k MasterKey) GoString() string { return "MasterKey(redacted)" }

// Kek is the ephemeral 32-byte key-encryption key derived from the user
// passphrase. Stored only in secure storage, keyed by scope.
type Kek struct {
	b [KeyLen]byte
}

// NewKek copies b into a Kek. b must be exactly KeyLen bytes.
func NewKek(b []byte) (Kek, error) {
	var k Kek
	if len(b) != KeyLen {
		return k, fmt.Errorf("kek must be %d bytes, got %d", KeyLen, len(b))
	}
	copy(k.b[:], b)
	return k, nil
}

// Bytes returns a copy of the key material.
func (k Kek) Bytes() []byte {
	out := make([]byte, KeyLen)
	copy(out, k.b[:])
	return out
}

func (k Kek) String() string   { return "Kek(redacted)" }
func (k Kek) GoString() string { return "Kek(redacted)" }
