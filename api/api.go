// Package api serves the node's HTTP interface.
//
// Endpoints are split between a public router, reachable by any client, and a
// private router meant for operators. Services contribute their own endpoints
// by implementing ServiceAPI.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/logging"
	"github.com/alekseysidorov/exonum-harness/metrics"
	"github.com/alekseysidorov/exonum-harness/tracing"
	"github.com/alekseysidorov/exonum-harness/types"
)

// Scope selects the router an endpoint is registered on.
type Scope int

const (
	Public Scope = iota
	Private
)

// HandlerFunc handles one endpoint. The result is written as JSON; a
// returned error is mapped to an HTTP status by StatusCode.
type HandlerFunc func(r *http.Request) (any, error)

// ServiceAPI is implemented by services that expose HTTP endpoints.
type ServiceAPI interface {
	WireAPI(r *Router)
}

// Router holds the public and private handlers of a node.
type Router struct {
	chain  *blockchain.Blockchain
	pool   Pool
	sender *Sender

	public  *http.ServeMux
	private *http.ServeMux

	limiter *RateLimiter

	logger  *logging.Logger
	metrics metrics.Metrics
	tracer  *tracing.Tracer
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) {
		r.logger = logger.WithComponent("api")
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *Router) {
		r.tracer = t
	}
}

// WithRateLimiter throttles public submissions (POST endpoints) per client.
func WithRateLimiter(l *RateLimiter) Option {
	return func(r *Router) {
		r.limiter = l
	}
}

// NewRouter builds both routers with the system and explorer endpoints and
// the endpoints of every registered service implementing ServiceAPI.
func NewRouter(chain *blockchain.Blockchain, pool Pool, opts ...Option) *Router {
	r := &Router{
		chain:   chain,
		pool:    pool,
		public:  http.NewServeMux(),
		private: http.NewServeMux(),
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewNopMetrics(),
		tracer:  tracing.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.sender = NewSender(chain, pool, r.logger)

	r.registerSystem()
	for _, svc := range chain.Services() {
		if s, ok := svc.(ServiceAPI); ok {
			s.WireAPI(r)
			r.logger.WithService(svc.Name()).Debug("wired service endpoints")
		}
	}
	return r
}

// Chain returns the blockchain the router serves.
func (r *Router) Chain() *blockchain.Blockchain {
	return r.chain
}

// Sender returns the transaction sender shared by all endpoints.
func (r *Router) Sender() *Sender {
	return r.sender
}

// Public returns the public handler.
func (r *Router) Public() http.Handler {
	return r.public
}

// Private returns the private handler.
func (r *Router) Private() http.Handler {
	return r.private
}

// Handle registers h under pattern, a Go 1.22 "METHOD /path" pattern.
func (r *Router) Handle(scope Scope, pattern string, h HandlerFunc) {
	handler := r.wrap(pattern, h)
	if scope == Private {
		r.private.Handle(pattern, handler)
		return
	}
	if r.limiter != nil && strings.HasPrefix(pattern, http.MethodPost+" ") {
		handler = r.limiter.limit(handler)
	}
	r.public.Handle(pattern, handler)
}

func (r *Router) wrap(pattern string, h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ctx := r.tracer.Extract(req.Context(), req.Header)
		ctx, span := r.tracer.StartSpan(ctx, "api "+pattern)
		defer span.End()

		result, err := h(req.WithContext(ctx))
		status := http.StatusOK
		if err != nil {
			status = StatusCode(err)
			span.RecordError(err)
			if status >= http.StatusInternalServerError {
				r.logger.Error("request failed", "route", pattern, logging.Error(err))
			}
			writeJSON(w, status, ErrorResponse{Error: err.Error()})
		} else {
			writeJSON(w, status, result)
		}
		r.metrics.ObserveAPIRequest(pattern, status, time.Since(start))
	})
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusCode maps an error to the HTTP status reported to the client.
func StatusCode(err error) int {
	var httpErr *Error
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.Is(err, types.ErrInvalidMessage),
		errors.Is(err, types.ErrUnknownService),
		errors.Is(err, types.ErrUnknownMessageType),
		errors.Is(err, types.ErrInvalidTx),
		errors.Is(err, types.ErrTxTooLarge),
		errors.Is(err, types.ErrTxVerificationFailed):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrBlockNotFound),
		errors.Is(err, types.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrMempoolFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is an error carrying an explicit HTTP status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// BadRequest returns an error reported as 400.
func BadRequest(msg string) error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
