package metrics

import (
	"time"
)

// NopMetrics is a no-op implementation of the Metrics interface.
// Use this when metrics collection is disabled.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

func (m *NopMetrics) SetBlockHeight(height int64)          {}
func (m *NopMetrics) IncBlocksCommitted()                  {}
func (m *NopMetrics) ObserveBlockDuration(d time.Duration) {}
func (m *NopMetrics) SetBlockTxs(count int)                {}

func (m *NopMetrics) AddTxsExecuted(count int)     {}
func (m *NopMetrics) IncTxsSkipped(reason string)  {}
func (m *NopMetrics) IncTxsReceived()              {}
func (m *NopMetrics) IncTxsRejected(reason string) {}

func (m *NopMetrics) SetMempoolSize(size int)     {}
func (m *NopMetrics) SetMempoolBytes(bytes int64) {}

func (m *NopMetrics) IncProbes()                           {}
func (m *NopMetrics) ObserveProbeDuration(d time.Duration) {}

func (m *NopMetrics) ObserveAPIRequest(route string, status int, d time.Duration) {}
