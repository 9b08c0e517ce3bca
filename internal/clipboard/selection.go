package clipboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

// RepresentationKind classifies a representation for ranking.
type RepresentationKind int

const (
	KindUnknown RepresentationKind = iota
	KindUri
	KindRichText
	KindImage
	KindPlainText
	KindFileList
)

func (k RepresentationKind) String() string {
	switch k {
	case KindFileList:
		return "file_list"
	case KindImage:
		return "image"
	case KindRichText:
		return "rich_text"
	case KindPlainText:
		return "plain_text"
	case KindUri:
		return "uri"
	}
	return "unknown"
}

// previewScore ranks kinds for UI preview, pasteScore for default paste.
// Higher wins.
func (k RepresentationKind) previewScore() int {
	switch k {
	case KindFileList:
		return 100
	case KindPlainText:
		return 90
	case KindImage:
		return 80
	case KindRichText:
		return 70
	case KindUri:
		return 60
	}
	return 10
}

func (k RepresentationKind) pasteScore() int {
	switch k {
	case KindFileList:
		return 100
	case KindRichText:
		return 90
	case KindPlainText:
		return 80
	case KindImage:
		return 70
	case KindUri:
		return 60
	}
	return 10
}

// ClassifyRepresentation decides the kind by MIME first, then falls back to
// the platform format id.
func ClassifyRepresentation(rep models.ObservedClipboardRepresentation) RepresentationKind {
	mime := strings.ToLower(strings.TrimSpace(rep.Mime))
	switch {
	case mime == "text/uri-list" || mime == "application/x-file-list":
		return KindFileList
	case strings.HasPrefix(mime, "image/"):
		return KindImage
	case mime == "text/html" || mime == "text/rtf" || mime == "application/rtf":
		return KindRichText
	case strings.HasPrefix(mime, "text/plain"):
		return KindPlainText
	case mime == "text/x-moz-url" || mime == "text/x-uri":
		return KindUri
	}

	format := strings.ToLower(string(rep.FormatID))
	switch {
	case strings.Contains(format, "file"):
		return KindFileList
	case strings.Contains(format, "image") || strings.Contains(format, "bitmap") || strings.Contains(format, "png"):
		return KindImage
	case strings.Contains(format, "html") || strings.Contains(format, "rtf"):
		return KindRichText
	case strings.Contains(format, "text") || strings.Contains(format, "string") || strings.Contains(format, "utf8"):
		return KindPlainText
	case strings.Contains(format, "url") || strings.Contains(format, "uri"):
		return KindUri
	}
	return KindUnknown
}

// SelectRepresentations applies selection policy v1 to a snapshot. The
// result is deterministic for a given snapshot. Representations with zero
// bytes are not usable; a snapshot with no usable representation yields
// common.ErrNoUsableRepresentation.
func SelectRepresentations(entryID models.EntryID, snapshot models.SystemClipboardSnapshot) (*models.ClipboardSelection, error) {
	var usable []models.ObservedClipboardRepresentation
	for _, rep := range snapshot.Representations {
		if rep.SizeBytes() > 0 {
			usable = append(usable, rep)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("selection: %w", common.ErrNoUsableRepresentation)
	}

	preview := rank(usable, RepresentationKind.previewScore)
	paste := rank(usable, RepresentationKind.pasteScore)

	secondary := make([]models.RepresentationID, 0, len(paste)-1)
	for _, rep := range paste {
		if rep.ID != paste[0].ID {
			secondary = append(secondary, rep.ID)
		}
	}

	return &models.ClipboardSelection{
		EntryID:         entryID,
		PrimaryRepID:    paste[0].ID,
		PreviewRepID:    preview[0].ID,
		PasteRepID:      paste[0].ID,
		SecondaryRepIDs: secondary,
		PolicyVersion:   models.SelectionPolicyV1,
	}, nil
}

// rank sorts a copy of reps by (score desc, size asc, format_id asc, id asc).
func rank(reps []models.ObservedClipboardRepresentation, score func(RepresentationKind) int) []models.ObservedClipboardRepresentation {
	out := make([]models.ObservedClipboardRepresentation, len(reps))
	copy(out, reps)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := score(ClassifyRepresentation(out[i])), score(ClassifyRepresentation(out[j]))
		if si != sj {
			return si > sj
		}
		if out[i].SizeBytes() != out[j].SizeBytes() {
			return out[i].SizeBytes() < out[j].SizeBytes()
		}
		if out[i].FormatID != out[j].FormatID {
			return out[i].FormatID < out[j].FormatID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
