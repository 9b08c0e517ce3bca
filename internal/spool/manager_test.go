package spool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

func newTestManager(t *testing.T, maxBytes int64) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "spool"), maxBytes)
	require.NoError(t, err)
	return m
}

func TestManagerWriteReadDelete(t *testing.T) {
	m := newTestManager(t, 1024)

	id := models.NewRepresentationID()
	require.NoError(t, m.Write(id, []byte("payload")))

	got, err := m.Read(id)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	require.NoError(t, m.Delete(id))
	require.NoError(t, m.Delete(id)) // missing file is fine

	_, err = m.Read(id)
	require.True(t, errors.Is(err, common.ErrNotFound))
}

func TestManagerFilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	m, err := NewManager(dir, 1024)
	require.NoError(t, err)

	id := models.NewRepresentationID()
	require.NoError(t, m.Write(id, []byte("secret")))

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(filepath.Join(dir, string(id)))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fileInfo.Mode().Perm())
}

func TestManagerEnforcesSizeBound(t *testing.T) {
	m := newTestManager(t, 10)

	oldest := models.NewRepresentationID()
	require.NoError(t, m.Write(oldest, make([]byte, 6)))
	require.NoError(t, os.Chtimes(m.path(oldest), time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))

	newest := models.NewRepresentationID()
	require.NoError(t, m.Write(newest, make([]byte, 6)))

	_, err := m.Read(oldest)
	require.True(t, errors.Is(err, common.ErrNotFound))
	_, err = m.Read(newest)
	require.NoError(t, err)
}

func TestManagerNeverTrimsJustWrittenFile(t *testing.T) {
	m := newTestManager(t, 10)

	id := models.NewRepresentationID()
	require.NoError(t, m.Write(id, make([]byte, 20)))

	// Over the bound on its own, but still present.
	got, err := m.Read(id)
	require.NoError(t, err)
	require.Len(t, got, 20)
}

func TestManagerList(t *testing.T) {
	m := newTestManager(t, 1024)

	a := models.NewRepresentationID()
	b := models.NewRepresentationID()
	require.NoError(t, m.Write(a, []byte("a")))
	require.NoError(t, m.Write(b, []byte("b")))

	ids, err := m.List()
	require.NoError(t, err)
	require.ElementsMatch(t, []models.RepresentationID{a, b}, ids)
}

func TestManagerListExpired(t *testing.T) {
	m := newTestManager(t, 1024)
	now := time.Now()

	stale := models.NewRepresentationID()
	require.NoError(t, m.Write(stale, []byte("old")))
	require.NoError(t, os.Chtimes(m.path(stale), now.Add(-8*24*time.Hour), now.Add(-8*24*time.Hour)))

	fresh := models.NewRepresentationID()
	require.NoError(t, m.Write(fresh, []byte("new")))

	expired, err := m.ListExpired(now.UnixMilli(), 7)
	require.NoError(t, err)
	require.Equal(t, []models.RepresentationID{stale}, expired)
}
