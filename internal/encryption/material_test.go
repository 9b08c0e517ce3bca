package encryption

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/keyslot"
	"github.com/uniclip/uniclipboard/internal/keystore"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
)

func newTestMaterialService(t *testing.T) (*MaterialService, *Session, StateStore) {
	t.Helper()
	dir := t.TempDir()

	slots, err := keyslot.NewFileStore(dir)
	require.NoError(t, err)
	state, err := NewStateStore(dir)
	require.NoError(t, err)

	session := NewSession()
	scope := models.KeyScope{ProfileID: "default"}
	svc := NewMaterialService(scope, keystore.NewKeyring(keystore.NewMemoryKeystore()), slots, state, session, logging.NewNullLogger())
	return svc, session, state
}

func TestSession_LifeCycle(t *testing.T) {
	s := NewSession()
	require.False(t, s.IsReady())

	_, err := s.MasterKey()
	require.ErrorIs(t, err, common.ErrNotInitialized)

	raw := make([]byte, models.KeyLen)
	raw[0] = 1
	mk, err := models.NewMasterKey(raw)
	require.NoError(t, err)

	s.SetMasterKey(mk)
	require.True(t, s.IsReady())

	got, err := s.MasterKey()
	require.NoError(t, err)
	require.Equal(t, mk.Bytes(), got.Bytes())

	s.Clear()
	require.False(t, s.IsReady())
}

func TestCreateSpace_CommitsMaterial(t *testing.T) {
	ctx := context.Background()
	svc, session, state := newTestMaterialService(t)

	require.NoError(t, svc.CreateSpace(ctx, "secret"))

	st, err := state.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, StateInitialized, st)
	require.True(t, session.IsReady())

	// Second create must refuse.
	err = svc.CreateSpace(ctx, "secret")
	require.ErrorIs(t, err, common.ErrAlreadyInitialized)
}

func TestCreateSpace_ThenUnlockAfterRestart(t *testing.T) {
	ctx := context.Background()
	svc, session, _ := newTestMaterialService(t)

	require.NoError(t, svc.CreateSpace(ctx, "secret"))
	mk, err := session.MasterKey()
	require.NoError(t, err)

	session.Clear()
	require.NoError(t, svc.Unlock(ctx, "secret"))
	got, err := session.MasterKey()
	require.NoError(t, err)
	require.Equal(t, mk.Bytes(), got.Bytes())

	session.Clear()
	err = svc.Unlock(ctx, "wrong")
	require.ErrorIs(t, err, common.ErrWrongPassphrase)
	require.False(t, session.IsReady())
}

func TestInstallFromKeySlot_JoinerPath(t *testing.T) {
	ctx := context.Background()

	// Sponsor creates a space and hands over its slot.
	sponsor, sponsorSession, _ := newTestMaterialService(t)
	require.NoError(t, sponsor.CreateSpace(ctx, "shared-passphrase"))
	slot, err := sponsor.slots.Load(ctx)
	require.NoError(t, err)
	sponsorKey, err := sponsorSession.MasterKey()
	require.NoError(t, err)

	joiner, joinerSession, joinerState := newTestMaterialService(t)

	// Wrong passphrase surfaces as such and leaves nothing behind.
	_, err = joiner.InstallFromKeySlot(ctx, slot, "typo")
	require.ErrorIs(t, err, common.ErrWrongPassphrase)
	require.False(t, joinerSession.IsReady())
	st, err := joinerState.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, StateUninitialized, st)

	mk, err := joiner.InstallFromKeySlot(ctx, slot, "shared-passphrase")
	require.NoError(t, err)
	require.Equal(t, sponsorKey.Bytes(), mk.Bytes(), "joiner derives the sponsor's master key")
	require.True(t, joinerSession.IsReady())

	st, err = joinerState.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, StateInitialized, st)
}

type failingStateStore struct {
	StateStore
}

func (f *failingStateStore) PersistInitialized(ctx context.Context) error {
	return errors.New("disk full")
}

func TestCreateSpace_RollsBackOnCommitFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	slots, err := keyslot.NewFileStore(dir)
	require.NoError(t, err)
	state, err := NewStateStore(dir)
	require.NoError(t, err)

	session := NewSession()
	scope := models.KeyScope{ProfileID: "default"}
	kr := keystore.NewKeyring(keystore.NewMemoryKeystore())
	svc := NewMaterialService(scope, kr, slots, &failingStateStore{state}, session, logging.NewNullLogger())

	err = svc.CreateSpace(ctx, "secret")
	require.Error(t, err)

	// All persisted steps must be compensated in LIFO order.
	require.False(t, session.IsReady())
	_, err = slots.Load(ctx)
	require.ErrorIs(t, err, common.ErrKeyNotFound)
	_, err = kr.LoadKek(ctx, scope)
	require.ErrorIs(t, err, common.ErrKeyNotFound)
}
