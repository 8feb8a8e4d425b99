// Package metrics provides Prometheus and no-op metrics for the ledger node.
package metrics

import (
	"time"
)

// Transaction rejection and skip reasons used as label values.
const (
	ReasonDecode       = "decode"
	ReasonVerification = "verification"
	ReasonDuplicate    = "duplicate"
	ReasonCommitted    = "committed"
	ReasonPoolFull     = "pool_full"
	ReasonTooLarge     = "too_large"
)

// Metrics is implemented by every metrics backend.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// Blocks
	SetBlockHeight(height int64)
	IncBlocksCommitted()
	ObserveBlockDuration(d time.Duration)
	SetBlockTxs(count int)

	// Transactions
	AddTxsExecuted(count int)
	IncTxsSkipped(reason string)
	IncTxsReceived()
	IncTxsRejected(reason string)

	// Pending pool
	SetMempoolSize(size int)
	SetMempoolBytes(bytes int64)

	// Probes
	IncProbes()
	ObserveProbeDuration(d time.Duration)

	// API
	ObserveAPIRequest(route string, status int, d time.Duration)
}

var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = (*NopMetrics)(nil)
)
