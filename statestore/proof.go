package statestore

import (
	"bytes"
	"errors"
	"fmt"

	ics23 "github.com/cosmos/ics23/go"

	"github.com/alekseysidorov/exonum-harness/types"
)

// ErrSpeculativeView is returned when a proof is requested from a snapshot
// carrying uncommitted overlay writes.
var ErrSpeculativeView = errors.New("proofs are only available for committed snapshots")

// Proof represents a merkle proof for a key in a committed snapshot.
// It can prove either the existence or non-existence of a key.
type Proof struct {
	// Key is the key this proof is for.
	Key []byte `json:"key"`

	// Value is the value if the key exists, nil otherwise.
	Value []byte `json:"value,omitempty"`

	// Exists indicates whether the key exists in the tree.
	Exists bool `json:"exists"`

	// RootHash is the root hash of the snapshot this proof was generated from.
	RootHash []byte `json:"root_hash"`

	// Version is the committed version this proof was generated from.
	Version int64 `json:"version"`

	// ProofBytes contains the serialized ICS23 commitment proof.
	ProofBytes []byte `json:"proof"`
}

// Proof returns a merkle proof for key against the snapshot's root hash.
func (s *Snapshot) Proof(key []byte) (*Proof, error) {
	if !s.IsCommitted() {
		return nil, ErrSpeculativeView
	}
	if s.tree == nil {
		return nil, fmt.Errorf("%w: no committed version", types.ErrVersionNotFound)
	}
	if key == nil {
		return nil, types.ErrKeyNotFound
	}

	unlock := s.rlock()
	defer unlock()

	value, err := s.tree.Get(key)
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}

	proof, err := s.tree.GetProof(key)
	if err != nil {
		return nil, fmt.Errorf("getting proof: %w", err)
	}

	proofBytes, err := proof.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshaling proof: %w", err)
	}

	return &Proof{
		Key:        key,
		Value:      value,
		Exists:     value != nil,
		RootHash:   s.tree.Hash(),
		Version:    s.version,
		ProofBytes: proofBytes,
	}, nil
}

// Verify verifies the proof against the given root hash using the IAVL proof spec.
// For existence proofs, it verifies the key-value pair exists at the root.
// For non-existence proofs, it verifies the key does not exist.
func (p *Proof) Verify(rootHash []byte) (bool, error) {
	if p == nil || len(p.ProofBytes) == 0 {
		return false, types.ErrInvalidProof
	}
	if len(rootHash) == 0 {
		return false, fmt.Errorf("%w: empty root hash", types.ErrInvalidProof)
	}

	var commitmentProof ics23.CommitmentProof
	if err := commitmentProof.Unmarshal(p.ProofBytes); err != nil {
		return false, fmt.Errorf("%w: failed to unmarshal proof: %v", types.ErrInvalidProof, err)
	}

	if p.Exists {
		if commitmentProof.GetExist() == nil {
			return false, fmt.Errorf("%w: not an existence proof", types.ErrInvalidProof)
		}
		return ics23.VerifyMembership(ics23.IavlSpec, rootHash, &commitmentProof, p.Key, p.Value), nil
	}

	if commitmentProof.GetNonexist() == nil {
		return false, fmt.Errorf("%w: not a non-existence proof", types.ErrInvalidProof)
	}
	return ics23.VerifyNonMembership(ics23.IavlSpec, rootHash, &commitmentProof, p.Key), nil
}

// VerifyConsistent checks that the proof's stored root hash matches the given root hash.
func (p *Proof) VerifyConsistent(rootHash []byte) bool {
	if p == nil || len(p.RootHash) == 0 || len(rootHash) == 0 {
		return false
	}
	return bytes.Equal(p.RootHash, rootHash)
}
