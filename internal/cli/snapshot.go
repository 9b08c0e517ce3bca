package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/uniclip/uniclipboard/internal/clipboard"
	"github.com/uniclip/uniclipboard/internal/models"
)

// runCapture reads stdin as plain text and writes it as a one-representation
// snapshot file in the wire JSON form.
func runCapture(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := newFlagSet("capture")
	out := fs.String("out", "", "snapshot file to write (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	snapshot := models.SystemClipboardSnapshot{
		TsMs: time.Now().UnixMilli(),
		Representations: []models.ObservedClipboardRepresentation{
			{
				ID:       models.NewRepresentationID(),
				FormatID: models.FormatID("public.utf8-plain-text"),
				Mime:     "text/plain",
				Bytes:    data,
			},
		},
	}

	encoded, err := clipboard.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = stdout.Write(append(encoded, '\n'))
		return err
	}
	return os.WriteFile(*out, encoded, 0o600)
}

// runRestore prints a representation from a snapshot file: the paste choice
// by default, or a secondary representation by index.
func runRestore(args []string, stdout io.Writer) error {
	fs := newFlagSet("restore")
	in := fs.String("in", "", "snapshot file to read")
	sel := fs.Int("select", -1, "secondary representation index instead of the paste choice")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("restore: -in is required")
	}

	snapshot, selection, err := loadSnapshot(*in)
	if err != nil {
		return err
	}

	repID := selection.PasteRepID
	if *sel >= 0 {
		if *sel >= len(selection.SecondaryRepIDs) {
			return fmt.Errorf("restore: no secondary representation %d", *sel)
		}
		repID = selection.SecondaryRepIDs[*sel]
	}

	for _, rep := range snapshot.Representations {
		if rep.ID == repID {
			_, err = stdout.Write(rep.Bytes)
			return err
		}
	}
	return fmt.Errorf("restore: representation %s not in snapshot", repID)
}

// runInspect shows how the selection policy ranks a snapshot's
// representations.
func runInspect(args []string, stdout io.Writer) error {
	fs := newFlagSet("inspect")
	in := fs.String("in", "", "snapshot file to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("inspect: -in is required")
	}

	snapshot, selection, err := loadSnapshot(*in)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "snapshot ts=%d representations=%d\n", snapshot.TsMs, len(snapshot.Representations))
	for _, rep := range snapshot.Representations {
		kind := clipboard.ClassifyRepresentation(rep)
		role := ""
		switch rep.ID {
		case selection.PasteRepID:
			role = "  [paste]"
		case selection.PreviewRepID:
			role = "  [preview]"
		}
		if rep.ID == selection.PasteRepID && rep.ID == selection.PreviewRepID {
			role = "  [paste+preview]"
		}
		fmt.Fprintf(stdout, "%s  %s  %s  %d bytes%s\n", rep.ID, rep.FormatID, kind, rep.SizeBytes(), role)
	}
	return nil
}

func loadSnapshot(path string) (*models.SystemClipboardSnapshot, *models.ClipboardSelection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snapshot, err := clipboard.DecodeSnapshot(data)
	if err != nil {
		return nil, nil, err
	}
	selection, err := clipboard.SelectRepresentations(models.NewEntryID(), *snapshot)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, selection, nil
}
