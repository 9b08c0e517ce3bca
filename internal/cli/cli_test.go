package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniclip/uniclipboard/internal/clipboard"
	"github.com/uniclip/uniclipboard/internal/models"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_NoCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "usage:")
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")

	code, _, errOut := runCLI(t, "hello clipboard", "capture", "-out", path)
	require.Equal(t, 0, code, errOut)

	code, out, errOut := runCLI(t, "", "restore", "-in", path)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "hello clipboard", out)
}

func TestRestore_SecondaryIndexOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")

	code, _, _ := runCLI(t, "text", "capture", "-out", path)
	require.Equal(t, 0, code)

	code, _, errOut := runCLI(t, "", "restore", "-in", path, "-select", "5")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no secondary representation")
}

func TestRestore_PrefersRichTextForPaste(t *testing.T) {
	snapshot := models.SystemClipboardSnapshot{
		TsMs: 42,
		Representations: []models.ObservedClipboardRepresentation{
			{ID: "r-plain", FormatID: "public.utf8-plain-text", Mime: "text/plain", Bytes: []byte("plain")},
			{ID: "r-html", FormatID: "public.html", Mime: "text/html", Bytes: []byte("<b>rich</b>")},
		},
	}
	encoded, err := clipboard.EncodeSnapshot(snapshot)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, encoded, 0o600))

	code, out, errOut := runCLI(t, "", "restore", "-in", path)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "<b>rich</b>", out)

	// The plain text loses the paste slot and is reachable as a secondary.
	code, out, _ = runCLI(t, "", "restore", "-in", path, "-select", "0")
	require.Equal(t, 0, code)
	assert.Equal(t, "plain", out)
}

func TestInspect_ShowsRanking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")

	code, _, _ := runCLI(t, "inspect me", "capture", "-out", path)
	require.Equal(t, 0, code)

	code, out, errOut := runCLI(t, "", "inspect", "-in", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "representations=1")
	assert.Contains(t, out, "[paste+preview]")
}

func TestInspect_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	code, _, errOut := runCLI(t, "", "inspect", "-in", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "failed to decode snapshot")
}

func TestInit_CreatesSpace(t *testing.T) {
	vault := t.TempDir()

	origArgs := os.Args
	origRead := readPassword
	defer func() {
		os.Args = origArgs
		readPassword = origRead
	}()
	os.Args = []string{"uniclip", "init", "-d", vault}
	readPassword = func(fd int) ([]byte, error) { return []byte("correct horse"), nil }

	code, out, errOut := runCLI(t, "", "init")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "space created")

	_, err := os.Stat(filepath.Join(vault, "keyslot.json"))
	assert.NoError(t, err)

	// A second init against the same vault must refuse.
	code, _, errOut = runCLI(t, "", "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "space creation failed")
}
