package models

// SystemClipboardSnapshot is a single observation of the system clipboard:
// one timestamp and the ordered multi-format representations the platform
// exposed at that moment. Snapshots are immutable and ephemeral; only the
// rows derived from them are persisted.
type SystemClipboardSnapshot struct {
	TsMs            int64                             `json:"ts_ms"`
	Representations []ObservedClipboardRepresentation `json:"representations"`
}

// ObservedClipboardRepresentation is one format view of a snapshot as read
// from the platform clipboard.
type ObservedClipboardRepresentation struct {
	ID       RepresentationID `json:"id"`
	FormatID FormatID         `json:"format_id"`
	Mime     string           `json:"mime,omitempty"`
	Bytes    []byte           `json:"bytes"`
}

// SizeBytes returns the payload length. Always >= 0.
func (r ObservedClipboardRepresentation) SizeBytes() int64 {
	return int64(len(r.Bytes))
}

// PayloadState tracks how a persisted representation's bytes are held.
type PayloadState string

const (
	PayloadInline     PayloadState = "inline"
	PayloadStaged     PayloadState = "staged"
	PayloadProcessing PayloadState = "processing"
	PayloadBlobReady  PayloadState = "blob_ready"
	PayloadFailed     PayloadState = "failed"
	PayloadLost       PayloadState = "lost"
)

// Terminal reports whether no further payload transitions are possible.
func (s PayloadState) Terminal() bool {
	switch s {
	case PayloadInline, PayloadBlobReady, PayloadFailed, PayloadLost:
		return true
	}
	return false
}

// PersistedClipboardRepresentation is the system-of-record row for one
// representation. At most one of InlineData and BlobID is set; both are
// empty while the payload is staged, processing, or terminally failed.
type PersistedClipboardRepresentation struct {
	ID           RepresentationID
	EventID      EventID
	FormatID     FormatID
	Mime         string
	SizeBytes    int64
	InlineData   []byte
	BlobID       *BlobID
	PayloadState PayloadState
	LastError    *string
}

// ClipboardEvent records one accepted capture.
type ClipboardEvent struct {
	EventID      EventID
	CapturedAtMs int64
	SourceDevice DeviceID
	SnapshotHash string
}

// ClipboardEntry is the user-visible history item, one per event.
type ClipboardEntry struct {
	EntryID     EntryID
	EventID     EventID
	CreatedAtMs int64
	Title       *string
	TotalSize   int64
	Pinned      bool
	DeletedAtMs *int64
}

// SelectionPolicyVersion tags which policy produced a selection.
type SelectionPolicyVersion string

const SelectionPolicyV1 SelectionPolicyVersion = "v1"

// ClipboardSelection names the representations chosen for an entry. All
// referenced ids resolve to representations of the entry's event.
type ClipboardSelection struct {
	EntryID         EntryID
	PrimaryRepID    RepresentationID
	PreviewRepID    RepresentationID
	PasteRepID      RepresentationID
	SecondaryRepIDs []RepresentationID
	PolicyVersion   SelectionPolicyVersion
}

// Blob is the content-addressed record of a materialized payload. ContentHash
// is unique; inserting by an existing hash is idempotent.
type Blob struct {
	BlobID         BlobID
	StorageLocator string
	SizeBytes      int64
	ContentHash    string
	CreatedAtMs    int64
}
