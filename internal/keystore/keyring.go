package keystore

import (
	"context"
	"fmt"

	"github.com/uniclip/uniclipboard/internal/models"
)

// Keyring stores the KEK per scope on top of a SecureStorage backend.
// StoreKek overwrites; DeleteKek is idempotent.
type Keyring interface {
	LoadKek(ctx context.Context, scope models.KeyScope) (models.Kek, error)
	StoreKek(ctx context.Context, scope models.KeyScope, kek models.Kek) error
	DeleteKek(ctx context.Context, scope models.KeyScope) error
}

type keyring struct {
	storage SecureStorage
}

// NewKeyring returns a Keyring backed by storage.
func NewKeyring(storage SecureStorage) Keyring {
	return &keyring{storage: storage}
}

func kekStorageKey(scope models.KeyScope) string {
	return "uc:kek:" + scope.String()
}

func (k *keyring) LoadKek(ctx context.Context, scope models.KeyScope) (models.Kek, error) {
	raw, err := k.storage.Get(ctx, kekStorageKey(scope))
	if err != nil {
		return models.Kek{}, err
	}
	kek, err := models.NewKek(raw)
	if err != nil {
		return models.Kek{}, fmt.Errorf("stored kek: %w", err)
	}
	return kek, nil
}

func (k *keyring) StoreKek(ctx context.Context, scope models.KeyScope, kek models.Kek) error {
	return k.storage.Set(ctx, kekStorageKey(scope), kek.Bytes())
}

func (k *keyring) DeleteKek(ctx context.Context, scope models.KeyScope) error {
	return k.storage.Delete(ctx, kekStorageKey(scope))
}
