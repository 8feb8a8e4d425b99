package blockchain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alekseysidorov/exonum-harness/types"
)

// Block is the record of one committed state advance.
type Block struct {
	Height    types.Height `json:"height"`
	PrevHash  types.Hash   `json:"prev_hash"`
	TxHashes  []types.Hash `json:"tx_hashes"`
	TxRoot    types.Hash   `json:"tx_root"`
	StateRoot types.Hash   `json:"state_root"`
	Time      time.Time    `json:"time"`
}

// Hash returns the block hash: SHA-256 over the fixed-layout header
// height | prev_hash | tx_root | state_root | time (unix nanos).
func (b *Block) Hash() types.Hash {
	buf := make([]byte, 0, 8+3*(1+types.HashSize)+8)
	buf = binary.BigEndian.AppendUint64(buf, uint64(b.Height)) //nolint:gosec // heights are non-negative
	for _, h := range []types.Hash{b.PrevHash, b.TxRoot, b.StateRoot} {
		buf = append(buf, byte(len(h)))
		buf = append(buf, h...)
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(b.Time.UnixNano())) //nolint:gosec // wraps before 1678 only
	return types.HashBytes(buf)
}

// Len returns the number of transactions in the block.
func (b *Block) Len() int {
	return len(b.TxHashes)
}

// Marshal encodes the block for the block store.
func (b *Block) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBlock decodes a block produced by Marshal.
func UnmarshalBlock(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidBlock, err)
	}
	return &b, nil
}

// TxRoot computes the merkle root of transaction hashes in block order.
// Pairs are combined with types.HashConcat and an odd node is promoted to the
// next level unchanged. The root of an empty list is nil.
func TxRoot(hashes []types.Hash) types.Hash {
	if len(hashes) == 0 {
		return nil
	}

	level := make([]types.Hash, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		next := make([]types.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, types.HashConcat(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}
