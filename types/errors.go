package types

import (
	"errors"
	"fmt"
)

// WrapValidationError wraps a validation error with field context.
func WrapValidationError(err error, field string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", field, err)
}

// Block-related errors.
var (
	// ErrBlockNotFound is returned when a block cannot be found.
	ErrBlockNotFound = errors.New("block not found")

	// ErrBlockAlreadyExists is returned when attempting to store a block that already exists.
	ErrBlockAlreadyExists = errors.New("block already exists")

	// ErrInvalidBlock is returned when a stored block cannot be decoded.
	ErrInvalidBlock = errors.New("invalid block")
)

// Transaction-related errors.
var (
	// ErrTxNotFound is returned when a transaction cannot be found.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrTxAlreadyExists is returned when a transaction is already pending.
	ErrTxAlreadyExists = errors.New("transaction already exists")

	// ErrTxAlreadyCommitted is returned when a transaction is already part of a committed block.
	ErrTxAlreadyCommitted = errors.New("transaction already committed")

	// ErrInvalidTx is returned when a transaction is invalid.
	ErrInvalidTx = errors.New("invalid transaction")

	// ErrTxVerificationFailed is returned when a transaction's verify predicate fails.
	ErrTxVerificationFailed = errors.New("transaction verification failed")

	// ErrTxTooLarge is returned when a transaction exceeds size limits.
	ErrTxTooLarge = errors.New("transaction too large")
)

// Mempool-related errors.
var (
	// ErrMempoolFull is returned when the mempool has reached capacity.
	ErrMempoolFull = errors.New("mempool is full")
)

// Message-related errors.
var (
	// ErrInvalidMessage is returned when a message is malformed or invalid.
	ErrInvalidMessage = errors.New("invalid message format")

	// ErrUnknownService is returned when no service is registered for a service id.
	ErrUnknownService = errors.New("unknown service")

	// ErrUnknownMessageType is returned when a message id is not recognized by its service.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrInvalidSignature is returned when a signature has the wrong size.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPublicKey is returned when a public key has the wrong size.
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// State-related errors.
var (
	// ErrKeyNotFound is returned when a key cannot be found in the state store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidProof is returned when a merkle proof is invalid.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrVersionNotFound is returned when a committed version is not available.
	ErrVersionNotFound = errors.New("version not found")
)

// Service registry errors.
var (
	// ErrServiceAlreadyRegistered is returned when two services share an id or name.
	ErrServiceAlreadyRegistered = errors.New("service already registered")
)
