package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	id1, err := LoadOrCreate(dir)
	require.NoError(t, err)
	require.Len(t, id1.Public, 32)

	id2, err := LoadOrCreate(dir)
	require.NoError(t, err)
	require.Equal(t, id1.Public, id2.Public, "identity must be stable across restarts")
	require.Equal(t, id1.Fingerprint(), id2.Fingerprint())
}

func TestLoadOrCreate_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "identity.json"), []byte("{not json"), 0o600))

	_, err := LoadOrCreate(dir)
	require.Error(t, err)
}
