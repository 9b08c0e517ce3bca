package clipboard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

func obsRep(id, format, mime string, data []byte) models.ObservedClipboardRepresentation {
	return models.ObservedClipboardRepresentation{
		ID:       models.RepresentationID(id),
		FormatID: models.FormatID(format),
		Mime:     mime,
		Bytes:    data,
	}
}

func TestClassifyRepresentation(t *testing.T) {
	tests := []struct {
		name   string
		format string
		mime   string
		want   RepresentationKind
	}{
		{"uri list mime", "x", "text/uri-list", KindFileList},
		{"png mime", "x", "image/png", KindImage},
		{"html mime", "x", "text/html", KindRichText},
		{"rtf mime", "x", "application/rtf", KindRichText},
		{"plain mime with charset", "x", "text/plain;charset=utf-8", KindPlainText},
		{"moz url mime", "x", "text/x-moz-url", KindUri},
		{"format fallback file", "CF_HDROP_FILES", "", KindFileList},
		{"format fallback image", "public.png-bitmap", "", KindImage},
		{"format fallback text", "UTF8_STRING", "", KindPlainText},
		{"format fallback url", "org.chromium.source-url", "", KindUri},
		{"nothing matches", "weird", "", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyRepresentation(obsRep("r", tt.format, tt.mime, []byte("x")))
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSelectionPrefersRichTextForPastePlainForPreview(t *testing.T) {
	entryID := models.NewEntryID()
	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-plain", "UTF8_STRING", "text/plain", []byte("hello")),
			obsRep("rep-html", "text/html", "text/html", []byte("<b>hello</b>")),
		},
	}

	sel, err := SelectRepresentations(entryID, snapshot)
	require.NoError(t, err)
	require.Equal(t, models.RepresentationID("rep-html"), sel.PasteRepID)
	require.Equal(t, models.RepresentationID("rep-html"), sel.PrimaryRepID)
	require.Equal(t, models.RepresentationID("rep-plain"), sel.PreviewRepID)
	require.Equal(t, []models.RepresentationID{"rep-plain"}, sel.SecondaryRepIDs)
	require.Equal(t, models.SelectionPolicyV1, sel.PolicyVersion)
}

func TestSelectionFileListBeatsEverything(t *testing.T) {
	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-files", "x", "text/uri-list", []byte("file:///tmp/a")),
			obsRep("rep-plain", "x", "text/plain", []byte("a")),
			obsRep("rep-img", "x", "image/png", []byte("png")),
		},
	}

	sel, err := SelectRepresentations(models.NewEntryID(), snapshot)
	require.NoError(t, err)
	require.Equal(t, models.RepresentationID("rep-files"), sel.PasteRepID)
	require.Equal(t, models.RepresentationID("rep-files"), sel.PreviewRepID)
}

func TestSelectionTieBreaksBySizeThenFormatThenID(t *testing.T) {
	// Same kind and score everywhere; size decides first.
	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-b", "fmt-b", "text/plain", []byte("large payload")),
			obsRep("rep-a", "fmt-a", "text/plain", []byte("tiny")),
		},
	}
	sel, err := SelectRepresentations(models.NewEntryID(), snapshot)
	require.NoError(t, err)
	require.Equal(t, models.RepresentationID("rep-a"), sel.PasteRepID)

	// Equal size; format id decides.
	snapshot = models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-2", "fmt-z", "text/plain", []byte("same")),
			obsRep("rep-1", "fmt-a", "text/plain", []byte("same")),
		},
	}
	sel, err = SelectRepresentations(models.NewEntryID(), snapshot)
	require.NoError(t, err)
	require.Equal(t, models.RepresentationID("rep-1"), sel.PasteRepID)

	// Equal size and format; id decides.
	snapshot = models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-z", "fmt", "text/plain", []byte("same")),
			obsRep("rep-a", "fmt", "text/plain", []byte("same")),
		},
	}
	sel, err = SelectRepresentations(models.NewEntryID(), snapshot)
	require.NoError(t, err)
	require.Equal(t, models.RepresentationID("rep-a"), sel.PasteRepID)
}

func TestSelectionIgnoresEmptyRepresentations(t *testing.T) {
	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-empty", "x", "image/png", nil),
			obsRep("rep-text", "x", "text/plain", []byte("hi")),
		},
	}
	sel, err := SelectRepresentations(models.NewEntryID(), snapshot)
	require.NoError(t, err)
	require.Equal(t, models.RepresentationID("rep-text"), sel.PasteRepID)
	require.Empty(t, sel.SecondaryRepIDs)
}

func TestSelectionNoUsableRepresentation(t *testing.T) {
	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-empty", "x", "text/plain", nil),
		},
	}
	_, err := SelectRepresentations(models.NewEntryID(), snapshot)
	require.ErrorIs(t, err, common.ErrNoUsableRepresentation)
}

func TestSelectionIsDeterministic(t *testing.T) {
	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-1", "fmt-a", "text/plain", []byte("one")),
			obsRep("rep-2", "fmt-b", "text/html", []byte("two")),
			obsRep("rep-3", "fmt-c", "image/png", []byte("three")),
		},
	}

	entryID := models.NewEntryID()
	first, err := SelectRepresentations(entryID, snapshot)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := SelectRepresentations(entryID, snapshot)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
