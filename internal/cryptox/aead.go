// Package cryptox implements the UniClipboard encryption core: Argon2id key
// derivation, XChaCha20-Poly1305 AEAD with strict AAD discipline, master-key
// wrapping, BLAKE3 content hashing, PIN hashing, identity fingerprints, and
// pairing short codes. Everything here is a pure function of its inputs plus
// CSPRNG nonces.
package cryptox

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

// Encrypt seals plaintext under key with XChaCha20-Poly1305 and the given
// AAD. A fresh 24-byte nonce is drawn from the CSPRNG for every call. The
// returned blob carries a diagnostic AAD fingerprint; decryption ignores it.
func Encrypt(key models.MasterKey, plaintext, aad []byte) (*models.EncryptedBlob, error) {
	return seal(key.Bytes(), plaintext, aad)
}

// Decrypt opens blob under key, reproducing aad bytewise. Any tag failure is
// reported as common.ErrCorruptedBlob: wrong key, wrong AAD, and bit-rot are
// indistinguishable by construction.
func Decrypt(key models.MasterKey, blob *models.EncryptedBlob, aad []byte) ([]byte, error) {
	plaintext, err := open(key.Bytes(), blob, aad)
	if err != nil {
		return nil, common.ErrCorruptedBlob
	}
	return plaintext, nil
}

// WrapMasterKey seals the master key under the KEK. Wrapping uses no AAD;
// AAD is reserved for data ciphertexts.
func WrapMasterKey(kek models.Kek, mk models.MasterKey) (*models.EncryptedBlob, error) {
	return seal(kek.Bytes(), mk.Bytes(), nil)
}

// UnwrapMasterKey recovers the master key from a wrapped blob. A tag failure
// means the KEK was derived from the wrong passphrase and is reported as
// common.ErrWrongPassphrase.
func UnwrapMasterKey(kek models.Kek, blob *models.EncryptedBlob) (models.MasterKey, error) {
	raw, err := open(kek.Bytes(), blob, nil)
	if err != nil {
		return models.MasterKey{}, common.ErrWrongPassphrase
	}
	mk, err := models.NewMasterKey(raw)
	if err != nil {
		return models.MasterKey{}, fmt.Errorf("%w: %v", common.ErrKeyMaterialCorrupt, err)
	}
	return mk, nil
}

func seal(key, plaintext, aad []byte) (*models.EncryptedBlob, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	blob := &models.EncryptedBlob{
		Version:    models.EncryptedBlobVersion,
		Aead:       models.AeadXChaCha20Poly1305,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, aad),
	}
	if len(aad) > 0 {
		blob.AadFingerprint = AadFingerprint(aad)
	}
	return blob, nil
}

func open(key []byte, blob *models.EncryptedBlob, aad []byte) ([]byte, error) {
	if blob == nil {
		return nil, fmt.Errorf("nil blob")
	}
	if blob.Version != models.EncryptedBlobVersion {
		return nil, fmt.Errorf("%w: encrypted blob version %d", common.ErrUnsupportedVersion, blob.Version)
	}
	if blob.Aead != models.AeadXChaCha20Poly1305 {
		return nil, fmt.Errorf("unsupported aead %q", blob.Aead)
	}
	if len(blob.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("invalid nonce size %d", len(blob.Nonce))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return aead.Open(nil, blob.Nonce, blob.Ciphertext, aad)
}
