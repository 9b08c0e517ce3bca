package cryptox

import (
	"github.com/zeebo/blake3"

	"github.com/uniclip/uniclipboard/internal/models"
)

// AAD strings are pipe-separated, ASCII-safe, and version-tagged. They must
// be reproducible bytewise on decrypt; a new context requires a new name and
// a fresh v1 token, never a reuse.

// InlineAad binds an inline representation ciphertext to its event and
// representation: "uc:inline:v1|<event_id>|<representation_id>".
func InlineAad(eventID models.EventID, repID models.RepresentationID) []byte {
	return []byte("uc:inline:v1|" + string(eventID) + "|" + string(repID))
}

// BlobAad binds a blob ciphertext to its blob id: "uc:blob:v1|<blob_id>".
func BlobAad(blobID models.BlobID) []byte {
	return []byte("uc:blob:v1|" + string(blobID))
}

// NetClipboardAad binds an outbound clipboard message to its message id:
// "uc:net_clipboard:v1|<message_id>".
func NetClipboardAad(messageID models.MessageID) []byte {
	return []byte("uc:net_clipboard:v1|" + string(messageID))
}

// SpaceAccessProofAad binds a space-access proof to the pairing session and
// space: "uc:space-access-proof:v1|<session_id>|<space_id>".
func SpaceAccessProofAad(sessionID models.SessionID, spaceID models.SpaceID) []byte {
	return []byte("uc:space-access-proof:v1|" + string(sessionID) + "|" + string(spaceID))
}

// AadFingerprint returns the 16-byte BLAKE3 prefix of aad. Stored on
// ciphertexts for diagnostics only.
func AadFingerprint(aad []byte) []byte {
	sum := blake3.Sum256(aad)
	return sum[:16]
}
