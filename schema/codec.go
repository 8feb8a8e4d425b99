package schema

import (
	"encoding/binary"
	"fmt"

	"github.com/alekseysidorov/exonum-harness/types"
)

// Codec converts typed values to and from their stored byte form.
type Codec[T any] interface {
	Encode(v T) []byte
	Decode(data []byte) (T, error)
}

// Uint64 stores unsigned integers as 8 big-endian bytes.
var Uint64 Codec[uint64] = uint64Codec{}

// Int64 stores signed integers as 8 big-endian bytes.
var Int64 Codec[int64] = int64Codec{}

// Bytes stores raw byte slices unchanged.
var Bytes Codec[[]byte] = bytesCodec{}

// Hash stores 32-byte hashes.
var Hash Codec[types.Hash] = hashCodec{}

type uint64Codec struct{}

func (uint64Codec) Encode(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func (uint64Codec) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("uint64: expected 8 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

type int64Codec struct{}

func (int64Codec) Encode(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v))
}

func (int64Codec) Decode(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("int64: expected 8 bytes, got %d", len(data))
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

type bytesCodec struct{}

func (bytesCodec) Encode(v []byte) []byte             { return v }
func (bytesCodec) Decode(data []byte) ([]byte, error) { return data, nil }

type hashCodec struct{}

func (hashCodec) Encode(v types.Hash) []byte { return v.Bytes() }

func (hashCodec) Decode(data []byte) (types.Hash, error) {
	if len(data) != types.HashSize {
		return nil, fmt.Errorf("hash: expected %d bytes, got %d", types.HashSize, len(data))
	}
	return types.Hash(data), nil
}
