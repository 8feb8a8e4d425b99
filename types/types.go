// Package types provides common type definitions shared by the ledger packages.
package types

import (
	"encoding/hex"
	"fmt"
)

// Height represents a block height in the blockchain.
// The genesis block is committed at height 1.
type Height int64

// Hash represents a cryptographic hash (32 bytes for SHA-256).
type Hash []byte

// Tx represents a raw, encoded transaction.
type Tx []byte

// String returns the height as a string.
func (h Height) String() string {
	return fmt.Sprintf("%d", h)
}

// Int64 returns the height as an int64.
func (h Height) Int64() int64 {
	return int64(h)
}

// Next returns the height following h.
func (h Height) Next() Height {
	return h + 1
}

// String returns the hash as a hexadecimal string.
func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Bytes returns the raw bytes of the hash.
func (h Hash) Bytes() []byte {
	return []byte(h)
}

// IsEmpty returns true if the hash is nil or zero-length.
func (h Hash) IsEmpty() bool {
	return len(h) == 0
}

// Equal returns true if the hashes are equal.
func (h Hash) Equal(other Hash) bool {
	if len(h) != len(other) {
		return false
	}
	for i := range h {
		if h[i] != other[i] {
			return false
		}
	}
	return true
}

// Key returns the hash as a string usable as a map key.
func (h Hash) Key() string {
	return string(h)
}

// MarshalText implements encoding.TextMarshaler so hashes render as hex in JSON.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid hex string: %w", err)
	}
	*h = Hash(b)
	return nil
}

// HashFromHex parses a hexadecimal string into a Hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	if len(b) != HashSize {
		return nil, fmt.Errorf("invalid hash length %d, want %d", len(b), HashSize)
	}
	return Hash(b), nil
}

// String returns the transaction as a truncated hexadecimal string.
func (tx Tx) String() string {
	if len(tx) > 32 {
		return hex.EncodeToString(tx[:32]) + "..."
	}
	return hex.EncodeToString(tx)
}

// Bytes returns the raw bytes of the transaction.
func (tx Tx) Bytes() []byte {
	return []byte(tx)
}

// Size returns the size of the transaction in bytes.
func (tx Tx) Size() int {
	return len(tx)
}
