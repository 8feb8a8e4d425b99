// Package mempool provides the pending transaction pool.
//
// Transactions are admitted only after their verify predicate holds, kept in
// admission order, and handed to block assembly through the blockchain.Pool
// interface.
package mempool

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/logging"
	"github.com/alekseysidorov/exonum-harness/metrics"
	"github.com/alekseysidorov/exonum-harness/types"
)

// TxValidator checks a decoded transaction before admission.
type TxValidator func(tx blockchain.Transaction) error

// VerifyTxValidator admits transactions whose Verify predicate holds.
func VerifyTxValidator(tx blockchain.Transaction) error {
	if !tx.Verify() {
		return fmt.Errorf("%w: %s", types.ErrTxVerificationFailed, tx.Hash())
	}
	return nil
}

// CommittedIndex answers whether a transaction is already committed.
// *blockchain.Blockchain implements it.
type CommittedIndex interface {
	IsCommitted(hash types.Hash) bool
}

// Mempool is an admission-ordered pool of verified transactions.
// It is safe for concurrent use.
type Mempool struct {
	txs   map[string]entry
	order []types.Hash

	maxTxs    int
	maxBytes  int64
	sizeBytes int64

	committed CommittedIndex
	recent    *lru.Cache[string, struct{}] // recently committed hashes
	validator TxValidator

	logger  *logging.Logger
	metrics metrics.Metrics
	mu      sync.RWMutex
}

type entry struct {
	tx   blockchain.Transaction
	size int64
}

var _ blockchain.Pool = (*Mempool)(nil)

// Option configures a Mempool.
type Option func(*Mempool)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Mempool) {
		m.logger = logger.WithComponent("mempool")
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt metrics.Metrics) Option {
	return func(m *Mempool) {
		m.metrics = mt
	}
}

// WithValidator replaces the admission check. The default is VerifyTxValidator.
func WithValidator(v TxValidator) Option {
	return func(m *Mempool) {
		m.validator = v
	}
}

// New creates a pool limited by cfg. committed is consulted at admission so a
// committed transaction is never admitted again; it may be nil.
func New(cfg config.MempoolConfig, committed CommittedIndex, opts ...Option) (*Mempool, error) {
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 1
	}
	recent, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating committed cache: %w", err)
	}

	m := &Mempool{
		txs:       make(map[string]entry),
		maxTxs:    cfg.MaxTxs,
		maxBytes:  cfg.MaxBytes,
		committed: committed,
		recent:    recent,
		validator: VerifyTxValidator,
		logger:    logging.NewNopLogger(),
		metrics:   metrics.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Add admits tx. It returns types.ErrTxAlreadyCommitted or
// types.ErrTxAlreadyExists for resubmissions, an error wrapping
// types.ErrTxVerificationFailed if the validator rejects tx,
// types.ErrTxTooLarge if tx alone exceeds the byte limit, and
// types.ErrMempoolFull when a limit would be exceeded.
func (m *Mempool) Add(tx blockchain.Transaction) error {
	if tx == nil {
		return types.ErrInvalidTx
	}
	m.metrics.IncTxsReceived()

	hash := tx.Hash()
	key := hash.Key()
	size := int64(len(tx.Raw().Encode()))

	if m.maxBytes > 0 && size > m.maxBytes {
		return m.reject(hash, types.ErrTxTooLarge, metrics.ReasonTooLarge)
	}
	if m.isCommitted(hash) {
		return m.reject(hash, types.ErrTxAlreadyCommitted, metrics.ReasonCommitted)
	}

	if err := m.validator(tx); err != nil {
		return m.reject(hash, err, metrics.ReasonVerification)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.txs[key]; exists {
		return m.reject(hash, types.ErrTxAlreadyExists, metrics.ReasonDuplicate)
	}
	if m.maxTxs > 0 && len(m.txs) >= m.maxTxs {
		return m.reject(hash, types.ErrMempoolFull, metrics.ReasonPoolFull)
	}
	if m.maxBytes > 0 && m.sizeBytes+size > m.maxBytes {
		return m.reject(hash, types.ErrMempoolFull, metrics.ReasonPoolFull)
	}

	m.txs[key] = entry{tx: tx, size: size}
	m.order = append(m.order, hash)
	m.sizeBytes += size
	m.updateGauges()

	m.logger.Debug("admitted transaction",
		logging.TxHash(hash.Bytes()),
		logging.MessageID(tx.ServiceID(), tx.MessageID()),
		logging.Size(int(size)),
	)
	return nil
}

func (m *Mempool) isCommitted(hash types.Hash) bool {
	if m.recent.Contains(hash.Key()) {
		return true
	}
	if m.committed != nil && m.committed.IsCommitted(hash) {
		m.recent.Add(hash.Key(), struct{}{})
		return true
	}
	return false
}

func (m *Mempool) reject(hash types.Hash, err error, reason string) error {
	m.metrics.IncTxsRejected(reason)
	m.logger.Debug("rejected transaction", logging.TxHash(hash.Bytes()), logging.Reason(reason))
	return err
}

// Reap returns up to max pending transactions in admission order.
// The transactions remain in the pool.
func (m *Mempool) Reap(max int) []blockchain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.order)
	if max > 0 && max < n {
		n = max
	}
	out := make([]blockchain.Transaction, 0, n)
	for _, hash := range m.order[:n] {
		out = append(out, m.txs[hash.Key()].tx)
	}
	return out
}

// Get returns a pending transaction by hash.
func (m *Mempool) Get(hash types.Hash) (blockchain.Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.txs[hash.Key()]
	return e.tx, ok
}

// Has reports whether a transaction is pending.
func (m *Mempool) Has(hash types.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.txs[hash.Key()]
	return ok
}

// Remove drops transactions taken by a committed block. Their hashes are
// remembered as committed so a resubmission is rejected without a state read.
func (m *Mempool) Remove(hashes []types.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hash := range hashes {
		key := hash.Key()
		m.recent.Add(key, struct{}{})
		if e, ok := m.txs[key]; ok {
			m.sizeBytes -= e.size
			delete(m.txs, key)
		}
	}

	kept := make([]types.Hash, 0, len(m.txs))
	for _, hash := range m.order {
		if _, ok := m.txs[hash.Key()]; ok {
			kept = append(kept, hash)
		}
	}
	m.order = kept
	m.updateGauges()
}

// Hashes returns the hashes of pending transactions in admission order.
func (m *Mempool) Hashes() []types.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Hash, len(m.order))
	copy(out, m.order)
	return out
}

// Size returns the number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// SizeBytes returns the total encoded size of pending transactions.
func (m *Mempool) SizeBytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sizeBytes
}

// Flush removes all pending transactions.
func (m *Mempool) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txs = make(map[string]entry)
	m.order = nil
	m.sizeBytes = 0
	m.updateGauges()
}

func (m *Mempool) updateGauges() {
	m.metrics.SetMempoolSize(len(m.txs))
	m.metrics.SetMempoolBytes(m.sizeBytes)
}
