// Package identity manages the device's long-lived Ed25519 identity keypair.
// The private key lives in a single file under the vault directory with
// restricted permissions; the public key is what peers fingerprint.
package identity

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/filex"
)

const identityFileName = "identity.json"

const identityVersion = 1

type identityFile struct {
	Version    int    `json:"version"`
	PrivateKey []byte `json:"private_key"`
}

// Identity is a device's Ed25519 keypair plus derived metadata.
type Identity struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// Fingerprint renders the grouped Base32 identity fingerprint of the public
// key.
func (id *Identity) Fingerprint() string {
	return cryptox.IdentityFingerprint(id.Public)
}

// LoadOrCreate reads the identity file under vaultDir, creating a fresh
// keypair on first run.
func LoadOrCreate(vaultDir string) (*Identity, error) {
	if err := filex.EnsureDir(vaultDir, 0o700); err != nil {
		return nil, err
	}
	path := filepath.Join(vaultDir, identityFileName)

	raw, err := os.ReadFile(path)
	if err == nil {
		return parse(raw)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read identity: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}

	data, err := json.Marshal(identityFile{Version: identityVersion, PrivateKey: priv})
	if err != nil {
		return nil, fmt.Errorf("marshal identity: %w", err)
	}
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write identity: %w", err)
	}

	return &Identity{Private: priv, Public: pub}, nil
}

func parse(raw []byte) (*Identity, error) {
	var f identityFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: identity file: %v", common.ErrKeyMaterialCorrupt, err)
	}
	if f.Version != identityVersion {
		return nil, fmt.Errorf("%w: identity version %d", common.ErrUnsupportedVersion, f.Version)
	}
	if len(f.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: identity key length %d", common.ErrKeyMaterialCorrupt, len(f.PrivateKey))
	}
	priv := ed25519.PrivateKey(f.PrivateKey)
	return &Identity{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
}
