package blockchain

import (
	"github.com/alekseysidorov/exonum-harness/messages"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/types"
)

// Transaction is a decoded, self-describing unit of state mutation.
//
// Implementations are immutable once constructed. Verify is a pure predicate
// evaluated before a transaction is admitted anywhere. Execute must be a
// deterministic function of the fork state and the transaction payload; it has
// no error return, and a condition it cannot handle is a programming defect
// that belongs in Verify.
type Transaction interface {
	// ServiceID returns the id of the service owning this transaction.
	ServiceID() uint16

	// MessageID returns the variant id within the owning service.
	MessageID() uint16

	// Verify reports whether the transaction is authentic and authorized.
	Verify() bool

	// Execute applies the transaction's effect to fork.
	Execute(fork *statestore.Fork)

	// Hash returns the content hash of the canonical encoding.
	Hash() types.Hash

	// Raw returns the signed wire message the transaction was built from.
	Raw() messages.RawMessage
}

// PrivateTransaction is implemented by administrator variants that may only
// be submitted through the private API.
type PrivateTransaction interface {
	Transaction
	Private() bool
}

// IsPrivate reports whether tx is restricted to the private API.
func IsPrivate(tx Transaction) bool {
	p, ok := tx.(PrivateTransaction)
	return ok && p.Private()
}

// Service owns a closed set of transaction variants.
type Service interface {
	// ID returns the service id carried in every message of this service.
	ID() uint16

	// Name returns the service name used in API routes and logs.
	Name() string

	// TxFromRaw decodes a raw message into one of the service's transaction
	// variants. An unknown message id yields an error wrapping
	// types.ErrUnknownMessageType.
	TxFromRaw(raw messages.RawMessage) (Transaction, error)
}

// Pool is the pending transaction pool consumed by the Assembler.
type Pool interface {
	// Reap returns up to max pending transactions in admission order
	// without removing them. max <= 0 means no limit.
	Reap(max int) []Transaction

	// Get returns a pending transaction by hash.
	Get(hash types.Hash) (Transaction, bool)

	// Remove drops the given transactions from the pool.
	Remove(hashes []types.Hash)
}
