// Package tracing wraps OpenTelemetry for the ledger node: provider setup from
// configuration and a small span API used around block assembly, probes and
// API requests.
package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/alekseysidorov/exonum-harness/types"
)

// Attribute keys recorded on spans.
const (
	AttrHeight    = "ledger.height"
	AttrTxCount   = "ledger.tx_count"
	AttrTxHash    = "ledger.tx_hash"
	AttrBlockHash = "ledger.block_hash"
	AttrService   = "ledger.service"
)

// Tracer starts spans using an OpenTelemetry tracer.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracer creates a tracer from the global provider.
func NewTracer(serviceName string) *Tracer {
	return &Tracer{
		tracer:     otel.Tracer(serviceName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// NewTracerWithProvider creates a tracer using a specific TracerProvider.
func NewTracerWithProvider(serviceName string, provider trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer:     provider.Tracer(serviceName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// NewNopTracer returns a tracer whose spans are never recorded.
func NewNopTracer() *Tracer {
	return NewTracerWithProvider("nop", noop.NewTracerProvider())
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

// Extract returns ctx carrying the remote span context found in HTTP headers.
func (t *Tracer) Extract(ctx context.Context, header http.Header) context.Context {
	return t.propagator.Extract(ctx, propagation.HeaderCarrier(header))
}

// Inject writes the span context of ctx into HTTP headers.
func (t *Tracer) Inject(ctx context.Context, header http.Header) {
	t.propagator.Inject(ctx, propagation.HeaderCarrier(header))
}

// Span wraps an OpenTelemetry span.
type Span struct {
	span trace.Span
}

// End completes the span.
func (s *Span) End() {
	s.span.End()
}

// SetAttributes sets attributes on the span.
func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// AddEvent adds an event to the span.
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records err on the span and marks it failed.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// IsRecording returns true if the span is recording events.
func (s *Span) IsRecording() bool {
	return s.span.IsRecording()
}

// Height returns a block height attribute.
func Height(h types.Height) attribute.KeyValue {
	return attribute.Int64(AttrHeight, h.Int64())
}

// TxCount returns a transaction count attribute.
func TxCount(n int) attribute.KeyValue {
	return attribute.Int(AttrTxCount, n)
}

// TxHash returns a transaction hash attribute.
func TxHash(h types.Hash) attribute.KeyValue {
	return attribute.String(AttrTxHash, h.String())
}

// BlockHash returns a block hash attribute.
func BlockHash(h types.Hash) attribute.KeyValue {
	return attribute.String(AttrBlockHash, h.String())
}

// Service returns a service name attribute.
func Service(name string) attribute.KeyValue {
	return attribute.String(AttrService, name)
}
