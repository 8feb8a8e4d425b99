package counter

import (
	"encoding/binary"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/keys"
	"github.com/alekseysidorov/exonum-harness/messages"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/types"
)

// Message ids of the counter transactions.
const (
	MsgIncrement uint16 = 1
	MsgReset     uint16 = 2
)

const (
	incrementPayloadSize = keys.PublicKeySize + 8
	resetPayloadSize     = keys.PublicKeySize
)

// Tx is a counter transaction. The set of variants is closed: TxIncrement
// and TxReset.
type Tx interface {
	blockchain.Transaction
	counterTx()
}

var (
	_ Tx = (*TxIncrement)(nil)
	_ Tx = (*TxReset)(nil)
)

// TxIncrement adds By to the counter. Anyone may send it.
type TxIncrement struct {
	Author keys.PublicKey
	By     uint64

	raw messages.RawMessage
}

// NewTxIncrement signs an increment by kp.
func NewTxIncrement(kp keys.KeyPair, by uint64) *TxIncrement {
	payload := make([]byte, 0, incrementPayloadSize)
	payload = append(payload, kp.Public[:]...)
	payload = binary.BigEndian.AppendUint64(payload, by)
	return &TxIncrement{
		Author: kp.Public,
		By:     by,
		raw:    messages.Sign(ServiceID, MsgIncrement, payload, kp),
	}
}

func decodeIncrement(raw messages.RawMessage) (*TxIncrement, error) {
	if len(raw.Payload) != incrementPayloadSize {
		return nil, messages.PayloadSizeError("increment", incrementPayloadSize, len(raw.Payload))
	}
	tx := &TxIncrement{
		By:  binary.BigEndian.Uint64(raw.Payload[keys.PublicKeySize:]),
		raw: raw,
	}
	copy(tx.Author[:], raw.Payload[:keys.PublicKeySize])
	return tx, nil
}

func (tx *TxIncrement) counterTx() {}

func (tx *TxIncrement) ServiceID() uint16        { return ServiceID }
func (tx *TxIncrement) MessageID() uint16        { return MsgIncrement }
func (tx *TxIncrement) Hash() types.Hash         { return tx.raw.Hash() }
func (tx *TxIncrement) Raw() messages.RawMessage { return tx.raw }

// Verify checks the signature against the embedded author.
func (tx *TxIncrement) Verify() bool {
	return tx.raw.VerifySignature(tx.Author)
}

// Execute adds By to the counter.
func (tx *TxIncrement) Execute(fork *statestore.Fork) {
	NewMutSchema(fork).IncCount(tx.By)
}

// TxReset sets the counter to zero. Only the administrator may send it.
type TxReset struct {
	Author keys.PublicKey

	admin keys.PublicKey
	raw   messages.RawMessage
}

// NewTxReset signs a reset by kp. The transaction verifies only when kp is
// the administrator key of the service that decodes it.
func NewTxReset(kp keys.KeyPair) *TxReset {
	return &TxReset{
		Author: kp.Public,
		raw:    messages.Sign(ServiceID, MsgReset, kp.Public[:], kp),
	}
}

func decodeReset(raw messages.RawMessage, admin keys.PublicKey) (*TxReset, error) {
	if len(raw.Payload) != resetPayloadSize {
		return nil, messages.PayloadSizeError("reset", resetPayloadSize, len(raw.Payload))
	}
	tx := &TxReset{admin: admin, raw: raw}
	copy(tx.Author[:], raw.Payload)
	return tx, nil
}

func (tx *TxReset) counterTx() {}

func (tx *TxReset) ServiceID() uint16        { return ServiceID }
func (tx *TxReset) MessageID() uint16        { return MsgReset }
func (tx *TxReset) Hash() types.Hash         { return tx.raw.Hash() }
func (tx *TxReset) Raw() messages.RawMessage { return tx.raw }
func (tx *TxReset) Private() bool            { return true }

// Verify requires the author to be the administrator and the signature to
// be the author's.
func (tx *TxReset) Verify() bool {
	return tx.Author == tx.admin && tx.raw.VerifySignature(tx.Author)
}

// Execute sets the counter to zero.
func (tx *TxReset) Execute(fork *statestore.Fork) {
	NewMutSchema(fork).SetCount(0)
}
