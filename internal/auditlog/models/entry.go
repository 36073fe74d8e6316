package models

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"

	id "didledger/pkg/domain"
)

// EventType tags the action an audit entry records.
type EventType string

const (
	EventDIDRegistered           EventType = "DIDRegistered"
	EventDIDKeyRotated           EventType = "DIDKeyRotated"
	EventDIDRevoked              EventType = "DIDRevoked"
	EventCredentialStatusIssued  EventType = "CredentialStatusIssued"
	EventCredentialStatusChanged EventType = "CredentialStatusChanged"
)

func (e EventType) String() string { return string(e) }

// GenesisHash is the PrevHash of the entry at sequence 0.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one immutable audit record.
//
// Invariants:
//   - Sequence values are dense from 0 and never reused
//   - Source is one of the two registry identities the log was built with
//   - PrevHash equals the Hash of the entry at Sequence-1 (GenesisHash at 0)
//   - Hash is ComputeHash over every other field
type Entry struct {
	Sequence  uint64      `json:"sequence"`
	EventType EventType   `json:"event_type"`
	SubjectID string      `json:"subject_id"`
	Actor     id.Identity `json:"actor"`
	Source    id.Identity `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	PrevHash  string      `json:"prev_hash"`
	Hash      string      `json:"hash"`
}

// ComputeHash returns the hex Keccak-256 digest of the entry's canonical
// encoding. The encoding length-prefixes every variable field so that no two
// distinct entries share an encoding.
func ComputeHash(e Entry) string {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], e.Sequence)
	h.Write(buf[:])
	for _, field := range []string{
		string(e.EventType),
		e.SubjectID,
		string(e.Actor),
		string(e.Source),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.PrevHash,
	} {
		binary.BigEndian.PutUint64(buf[:], uint64(len(field)))
		h.Write(buf[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Seal sets Hash from the entry's other fields.
func (e *Entry) Seal() {
	e.Hash = ComputeHash(*e)
}
