package clipboard

import (
	"encoding/json"
	"fmt"

	"github.com/uniclip/uniclipboard/internal/models"
)

// EncodeSnapshot serializes a snapshot to its JSON wire form. Representation
// bytes travel base64-encoded.
func EncodeSnapshot(snapshot models.SystemClipboardSnapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses the JSON wire form back into a snapshot.
func DecodeSnapshot(data []byte) (*models.SystemClipboardSnapshot, error) {
	var snapshot models.SystemClipboardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}
