// Package common defines shared sentinel errors used across the
// UniClipboard core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Key material errors.
	ErrWrongPassphrase    = errors.New("wrong passphrase")
	ErrCorruptedBlob      = errors.New("corrupted blob")
	ErrKeyNotFound        = errors.New("key not found")
	ErrKeyMaterialCorrupt = errors.New("key material corrupt")

	// Encryption session lifecycle.
	ErrNotInitialized     = errors.New("encryption not initialized")
	ErrAlreadyInitialized = errors.New("encryption already initialized")

	// Repository-level errors.
	ErrNotFound         = errors.New("not found")
	ErrInvalidParameter = errors.New("invalid parameter")

	// Protocol errors.
	ErrTimeout            = errors.New("timeout")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrTransport          = errors.New("transport error")

	// Capture/pipeline errors.
	ErrNoUsableRepresentation = errors.New("no usable representation")
	ErrPayloadMissing         = errors.New("payload bytes missing")
)
