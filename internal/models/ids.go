// Package models holds the core UniClipboard entities and identifier types
// shared by every subsystem. Entities carry no behavior beyond invariant
// helpers; persistence and policy live elsewhere.
package models

import "github.com/google/uuid"

// Identifier types are opaque strings; equality is byte equality. New ids are
// UUIDv4 strings, ids received from peers or disk are used verbatim.
type (
	EntryID          string
	EventID          string
	RepresentationID string
	BlobID           string
	DeviceID         string
	PeerID           string
	SessionID        string
	SpaceID          string
	FormatID         string
	MessageID        string
)

func NewEntryID() EntryID                   { return EntryID(uuid.NewString()) }
func NewEventID() EventID                   { return EventID(uuid.NewString()) }
func NewRepresentationID() RepresentationID { return RepresentationID(uuid.NewString()) }
func NewBlobID() BlobID                     { return BlobID(uuid.NewString()) }
func NewSessionID() SessionID               { return SessionID(uuid.NewString()) }
func NewMessageID() MessageID               { return MessageID(uuid.NewString()) }
