package cryptox

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/uniclip/uniclipboard/internal/models"
)

// ContentHashPrefix tags BLAKE3 content hashes.
const ContentHashPrefix = "blake3v1:"

// ContentHash returns "blake3v1:" + hex(BLAKE3(data)). Used both for blob
// dedup keys and snapshot hashes.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return ContentHashPrefix + hex.EncodeToString(sum[:])
}

// SnapshotHash hashes the concatenated observed bytes of a snapshot, in
// representation order. Purely content-derived; format ids, MIME types and
// timestamps do not influence it.
func SnapshotHash(snapshot models.SystemClipboardSnapshot) string {
	h := blake3.New()
	for _, rep := range snapshot.Representations {
		_, _ = h.Write(rep.Bytes)
	}
	var sum [32]byte
	h.Sum(sum[:0])
	return ContentHashPrefix + hex.EncodeToString(sum[:])
}
