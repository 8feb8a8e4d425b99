// Package messages defines the signed wire format of raw transactions.
//
// Layout (big-endian):
//
//	service_id  u16
//	message_id  u16
//	payload_len u32
//	payload     [payload_len]byte
//	signature   [64]byte  ed25519 over all preceding bytes
package messages

import (
	"encoding/binary"
	"fmt"

	"github.com/alekseysidorov/exonum-harness/keys"
	"github.com/alekseysidorov/exonum-harness/types"
)

const (
	// HeaderSize is the size of the fixed message header.
	HeaderSize = 2 + 2 + 4

	// MaxPayloadSize bounds the payload of a single message (1 MB).
	MaxPayloadSize = 1 << 20
)

// RawMessage is a signed transaction whose payload has not been interpreted yet.
// It is routed to a concrete transaction decoder by (ServiceID, MessageID).
type RawMessage struct {
	ServiceID uint16
	MessageID uint16
	Payload   []byte
	Signature []byte
}

// Sign builds a RawMessage and signs it with kp.
func Sign(serviceID, messageID uint16, payload []byte, kp keys.KeyPair) RawMessage {
	m := RawMessage{
		ServiceID: serviceID,
		MessageID: messageID,
		Payload:   append([]byte(nil), payload...),
	}
	m.Signature = kp.Sign(m.SignedBytes())
	return m
}

// SignedBytes returns the encoding covered by the signature.
func (m RawMessage) SignedBytes() []byte {
	buf := make([]byte, HeaderSize+len(m.Payload))
	binary.BigEndian.PutUint16(buf[0:2], m.ServiceID)
	binary.BigEndian.PutUint16(buf[2:4], m.MessageID)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(m.Payload))) //nolint:gosec // bounded by MaxPayloadSize
	copy(buf[HeaderSize:], m.Payload)
	return buf
}

// Encode returns the canonical encoding of the message.
func (m RawMessage) Encode() types.Tx {
	signed := m.SignedBytes()
	out := make([]byte, len(signed)+len(m.Signature))
	copy(out, signed)
	copy(out[len(signed):], m.Signature)
	return out
}

// Hash returns the SHA-256 hash of the canonical encoding.
func (m RawMessage) Hash() types.Hash {
	return types.HashTx(m.Encode())
}

// VerifySignature reports whether the message is signed by author.
func (m RawMessage) VerifySignature(author keys.PublicKey) bool {
	return keys.Verify(author, m.SignedBytes(), m.Signature)
}

// Decode parses a canonical encoding produced by Encode.
func Decode(data []byte) (RawMessage, error) {
	if len(data) < HeaderSize+keys.SignatureSize {
		return RawMessage{}, fmt.Errorf("%w: message too short (%d bytes)", types.ErrInvalidMessage, len(data))
	}

	payloadLen := binary.BigEndian.Uint32(data[4:8])
	if payloadLen > MaxPayloadSize {
		return RawMessage{}, fmt.Errorf("%w: payload of %d bytes", types.ErrTxTooLarge, payloadLen)
	}

	want := HeaderSize + int(payloadLen) + keys.SignatureSize
	if len(data) != want {
		return RawMessage{}, fmt.Errorf("%w: expected %d bytes, got %d", types.ErrInvalidMessage, want, len(data))
	}

	payloadEnd := HeaderSize + int(payloadLen)
	return RawMessage{
		ServiceID: binary.BigEndian.Uint16(data[0:2]),
		MessageID: binary.BigEndian.Uint16(data[2:4]),
		Payload:   append([]byte(nil), data[HeaderSize:payloadEnd]...),
		Signature: append([]byte(nil), data[payloadEnd:]...),
	}, nil
}

// UnknownMessageError reports a message id that its service does not define.
func UnknownMessageError(serviceID, messageID uint16) error {
	return fmt.Errorf("%w: service %d message %d", types.ErrUnknownMessageType, serviceID, messageID)
}

// PayloadSizeError reports a payload that does not match a fixed-size layout.
func PayloadSizeError(name string, want, got int) error {
	return fmt.Errorf("%w: %s payload must be %d bytes, got %d", types.ErrInvalidMessage, name, want, got)
}
