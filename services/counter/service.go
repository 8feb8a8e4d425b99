// Package counter is a sample service owning a single counter. Anyone may
// increment it; only the configured administrator may reset it.
package counter

import (
	"fmt"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/keys"
	"github.com/alekseysidorov/exonum-harness/messages"
)

const (
	ServiceID   uint16 = 1
	ServiceName        = "counter"
)

// Service is the counter service.
type Service struct {
	admin keys.PublicKey
}

var _ blockchain.Service = (*Service)(nil)

// New creates the service with admin as the administrator key.
func New(admin keys.PublicKey) *Service {
	return &Service{admin: admin}
}

// FromConfig creates the service from its configuration section.
func FromConfig(cfg config.CounterConfig) (*Service, error) {
	admin, err := keys.ParsePublicKey(cfg.AdminKey)
	if err != nil {
		return nil, fmt.Errorf("counter admin key: %w", err)
	}
	return New(admin), nil
}

// DefaultAdmin returns the key pair whose public key is config.DefaultAdminKey.
func DefaultAdmin() keys.KeyPair {
	return keys.FromPassphrase("correct horse battery staple")
}

func (s *Service) ID() uint16   { return ServiceID }
func (s *Service) Name() string { return ServiceName }

// Admin returns the administrator key.
func (s *Service) Admin() keys.PublicKey {
	return s.admin
}

// TxFromRaw decodes raw into one of the counter transactions.
func (s *Service) TxFromRaw(raw messages.RawMessage) (blockchain.Transaction, error) {
	return s.Decode(raw)
}

// Decode is TxFromRaw returning the closed counter transaction type.
func (s *Service) Decode(raw messages.RawMessage) (Tx, error) {
	if raw.ServiceID != ServiceID {
		return nil, messages.UnknownMessageError(raw.ServiceID, raw.MessageID)
	}
	switch raw.MessageID {
	case MsgIncrement:
		return decodeIncrement(raw)
	case MsgReset:
		return decodeReset(raw, s.admin)
	default:
		return nil, messages.UnknownMessageError(raw.ServiceID, raw.MessageID)
	}
}
