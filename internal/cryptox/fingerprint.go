package cryptox

import (
	"crypto/ed25519"
	"encoding/base32"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/uniclip/uniclipboard/internal/models"
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// IdentityFingerprint renders a device's long-lived Ed25519 public key as a
// short human-checkable code: the first 10 bytes of
// BLAKE3("uc-identity-fp-v1" || pub), Base32 without padding (16 chars),
// grouped AAAA-BBBB-CCCC-DDDD.
func IdentityFingerprint(pub ed25519.PublicKey) string {
	h := blake3.New()
	_, _ = h.Write([]byte("uc-identity-fp-v1"))
	_, _ = h.Write(pub)
	var sum [32]byte
	h.Sum(sum[:0])

	code := b32.EncodeToString(sum[:10])
	var sb strings.Builder
	for i := 0; i < len(code); i += 4 {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(code[i : i+4])
	}
	return sb.String()
}

// ShortCodeLen is the number of characters of the pairing short code shown
// to both users.
const ShortCodeLen = 6

// PairingShortCode derives the per-session confirmation code both users
// compare on screen. It binds the whole transcript so neither side can forge
// a code before the session exists:
// Base32(BLAKE3("uc-pairing-transcript-v1" || session_id || nonce_i ||
// nonce_r || pub_i || pub_r || protocol_version))[0:6].
func PairingShortCode(sessionID models.SessionID, nonceInitiator, nonceResponder []byte, pubInitiator, pubResponder ed25519.PublicKey, protocolVersion byte) string {
	h := blake3.New()
	_, _ = h.Write([]byte("uc-pairing-transcript-v1"))
	_, _ = h.Write([]byte(sessionID))
	_, _ = h.Write(nonceInitiator)
	_, _ = h.Write(nonceResponder)
	_, _ = h.Write(pubInitiator)
	_, _ = h.Write(pubResponder)
	_, _ = h.Write([]byte{protocolVersion})
	var sum [32]byte
	h.Sum(sum[:0])

	return b32.EncodeToString(sum[:5])[:ShortCodeLen]
}
