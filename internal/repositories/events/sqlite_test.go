package events

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/repositories"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repositories.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleEvent() (models.ClipboardEvent, []models.PersistedClipboardRepresentation) {
	event := models.ClipboardEvent{
		EventID:      "event-1",
		CapturedAtMs: 1000,
		SourceDevice: "device-a",
		SnapshotHash: "blake3v1:abc",
	}
	reps := []models.PersistedClipboardRepresentation{
		{
			ID: "rep-1", EventID: "event-1", FormatID: "public.utf8-plain-text",
			Mime: "text/plain", SizeBytes: 5, InlineData: []byte("hello"),
			PayloadState: models.PayloadInline,
		},
		{
			ID: "rep-2", EventID: "event-1", FormatID: "public.png",
			Mime: "image/png", SizeBytes: 70000,
			PayloadState: models.PayloadStaged,
		},
	}
	return event, reps
}

func TestInsertEvent_AndReadBack(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))

	event, reps := sampleEvent()
	require.NoError(t, repo.InsertEvent(ctx, event, reps))

	got, err := repo.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	require.Equal(t, event, *got)

	gotReps, err := repo.GetRepresentations(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, gotReps, 2)
	require.Equal(t, []byte("hello"), gotReps[0].InlineData)
	require.Equal(t, models.PayloadInline, gotReps[0].PayloadState)
	require.Nil(t, gotReps[0].BlobID)
	require.Equal(t, models.PayloadStaged, gotReps[1].PayloadState)
	require.Nil(t, gotReps[1].InlineData)
}

func TestInsertEvent_RollsBackOnDuplicateRep(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))

	event, reps := sampleEvent()
	reps[1].ID = reps[0].ID // force a primary-key conflict on the second row

	require.Error(t, repo.InsertEvent(ctx, event, reps))

	_, err := repo.GetEvent(ctx, "event-1")
	require.ErrorIs(t, err, common.ErrNotFound, "event must not survive a failed rep insert")
}

func TestDeleteEvent_CascadesRepresentations(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewSQLiteRepository(db)

	event, reps := sampleEvent()
	require.NoError(t, repo.InsertEvent(ctx, event, reps))
	require.NoError(t, repo.DeleteEvent(ctx, "event-1"))

	gotReps, err := repo.GetRepresentations(ctx, "event-1")
	require.NoError(t, err)
	require.Empty(t, gotReps)

	require.ErrorIs(t, repo.DeleteEvent(ctx, "event-1"), common.ErrNotFound)
}
