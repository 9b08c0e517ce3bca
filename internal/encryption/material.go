package encryption

import (
	"context"
	"fmt"
	"time"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/keyslot"
	"github.com/uniclip/uniclipboard/internal/keystore"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
)

// MaterialService creates and installs key material. CreateSpace is the
// one-sided variant run by the initiator of a brand-new space; a joiner
// instead receives a KeySlotFile from its sponsor and calls
// InstallFromKeySlot.
type MaterialService struct {
	scope   models.KeyScope
	keyring keystore.Keyring
	slots   keyslot.Store
	state   StateStore
	session *Session
	log     logging.Logger
	now     func() time.Time
}

// NewMaterialService wires a MaterialService.
func NewMaterialService(scope models.KeyScope, kr keystore.Keyring, slots keyslot.Store, state StateStore, session *Session, log logging.Logger) *MaterialService {
	return &MaterialService{
		scope:   scope,
		keyring: kr,
		slots:   slots,
		state:   state,
		session: session,
		log:     log,
		now:     time.Now,
	}
}

// CreateSpace derives a KEK from the passphrase, generates a fresh master
// key, wraps it into a new key slot, and commits the material. The persist
// steps (KEK, slot, session, state) are compensated in LIFO order if a later
// step fails; the state transition to initialized is the single commit point.
func (m *MaterialService) CreateSpace(ctx context.Context, passphrase string) error {
	state, err := m.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load encryption state: %w", err)
	}
	if state == StateInitialized {
		return common.ErrAlreadyInitialized
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return err
	}
	slot := &models.KeySlotFile{
		Version:   models.KeySlotVersion,
		Scope:     m.scope.String(),
		Kdf:       models.DefaultKdfParams(),
		Salt:      salt,
		CreatedAt: m.now().UTC().Format(time.RFC3339),
	}

	kek, err := cryptox.DeriveKek(passphrase, slot.Salt, slot.Kdf)
	if err != nil {
		return fmt.Errorf("derive kek: %w", err)
	}
	mk, err := cryptox.NewRandomMasterKey()
	if err != nil {
		return err
	}
	wrapped, err := cryptox.WrapMasterKey(kek, mk)
	if err != nil {
		return fmt.Errorf("wrap master key: %w", err)
	}
	slot.WrappedMasterKey = wrapped

	// Persist steps with LIFO compensation. A compensating delete that
	// fails is logged but never overrides the original error.
	var undo []func()
	fail := func(original error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return original
	}

	if err := m.keyring.StoreKek(ctx, m.scope, kek); err != nil {
		return fail(fmt.Errorf("store kek: %w", err))
	}
	undo = append(undo, func() {
		if err := m.keyring.DeleteKek(ctx, m.scope); err != nil {
			m.log.Error(ctx, "rollback: delete kek failed", "error", err)
		}
	})

	if err := m.slots.Save(ctx, slot); err != nil {
		return fail(fmt.Errorf("save key slot: %w", err))
	}
	undo = append(undo, func() {
		if err := m.slots.Delete(ctx); err != nil {
			m.log.Error(ctx, "rollback: delete key slot failed", "error", err)
		}
	})

	m.session.SetMasterKey(mk)
	undo = append(undo, func() { m.session.Clear() })

	if err := m.state.PersistInitialized(ctx); err != nil {
		return fail(fmt.Errorf("persist encryption state: %w", err))
	}

	m.log.Info(ctx, "encrypted space created", "scope", m.scope.String())
	return nil
}

// InstallFromKeySlot runs the joiner side: derive KEK' from the passphrase
// and the sponsor's slot, unwrap the master key (an AEAD failure surfaces as
// common.ErrWrongPassphrase), then commit the material with the same
// rollback discipline as CreateSpace.
func (m *MaterialService) InstallFromKeySlot(ctx context.Context, slot *models.KeySlotFile, passphrase string) (models.MasterKey, error) {
	if slot == nil || slot.WrappedMasterKey == nil {
		return models.MasterKey{}, fmt.Errorf("%w: key slot has no wrapped master key", common.ErrKeyMaterialCorrupt)
	}
	if slot.Version != models.KeySlotVersion {
		return models.MasterKey{}, fmt.Errorf("%w: key slot version %q", common.ErrUnsupportedVersion, slot.Version)
	}

	state, err := m.state.Load(ctx)
	if err != nil {
		return models.MasterKey{}, fmt.Errorf("load encryption state: %w", err)
	}
	if state == StateInitialized {
		return models.MasterKey{}, common.ErrAlreadyInitialized
	}

	kek, err := cryptox.DeriveKek(passphrase, slot.Salt, slot.Kdf)
	if err != nil {
		return models.MasterKey{}, fmt.Errorf("derive kek: %w", err)
	}
	mk, err := cryptox.UnwrapMasterKey(kek, slot.WrappedMasterKey)
	if err != nil {
		return models.MasterKey{}, err
	}

	// Rewrite the slot under the local scope so restarts unlock locally.
	local := *slot
	local.Scope = m.scope.String()
	local.UpdatedAt = m.now().UTC().Format(time.RFC3339)

	var undo []func()
	fail := func(original error) (models.MasterKey, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return models.MasterKey{}, original
	}

	if err := m.keyring.StoreKek(ctx, m.scope, kek); err != nil {
		return fail(fmt.Errorf("store kek: %w", err))
	}
	undo = append(undo, func() {
		if err := m.keyring.DeleteKek(ctx, m.scope); err != nil {
			m.log.Error(ctx, "rollback: delete kek failed", "error", err)
		}
	})

	if err := m.slots.Save(ctx, &local); err != nil {
		return fail(fmt.Errorf("save key slot: %w", err))
	}
	undo = append(undo, func() {
		if err := m.slots.Delete(ctx); err != nil {
			m.log.Error(ctx, "rollback: delete key slot failed", "error", err)
		}
	})

	m.session.SetMasterKey(mk)
	undo = append(undo, func() { m.session.Clear() })

	if err := m.state.PersistInitialized(ctx); err != nil {
		return fail(fmt.Errorf("persist encryption state: %w", err))
	}

	m.log.Info(ctx, "key material installed from sponsor slot", "scope", m.scope.String())
	return mk, nil
}

// Unlock re-derives the KEK from the passphrase against the persisted slot
// and installs the master key into the session. Used on process restart.
func (m *MaterialService) Unlock(ctx context.Context, passphrase string) error {
	slot, err := m.slots.Load(ctx)
	if err != nil {
		return err
	}
	if slot.WrappedMasterKey == nil {
		return fmt.Errorf("%w: key slot not finalized", common.ErrKeyMaterialCorrupt)
	}
	if slot.Scope != m.scope.String() {
		return fmt.Errorf("%w: key slot scope %q, want %q", common.ErrKeyMaterialCorrupt, slot.Scope, m.scope.String())
	}
	kek, err := cryptox.DeriveKek(passphrase, slot.Salt, slot.Kdf)
	if err != nil {
		return fmt.Errorf("derive kek: %w", err)
	}
	mk, err := cryptox.UnwrapMasterKey(kek, slot.WrappedMasterKey)
	if err != nil {
		return err
	}
	m.session.SetMasterKey(mk)
	return nil
}
