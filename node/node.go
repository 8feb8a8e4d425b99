// Package node wires the ledger components into a runnable single node.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/alekseysidorov/exonum-harness/api"
	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/blockstore"
	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/logging"
	"github.com/alekseysidorov/exonum-harness/mempool"
	"github.com/alekseysidorov/exonum-harness/metrics"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/tracing"
)

// Node aggregates the components of a running ledger node.
type Node struct {
	cfg     *config.Config
	version string

	store     *statestore.Store
	blocks    blockstore.BlockStore
	chain     *blockchain.Blockchain
	pool      *mempool.Mempool
	assembler *blockchain.Assembler
	router    *api.Router

	public     *api.Server
	private    *api.Server
	metricsSrv *api.Server
	producer   *Producer
	limiter    *api.RateLimiter

	logger          *logging.Logger
	metrics         metrics.Metrics
	tracer          *tracing.Tracer
	shutdownTracing func(context.Context) error
	closeLog        func() error
}

// Option configures a Node.
type Option func(*Node)

// WithLogger overrides the logger built from the logging section.
func WithLogger(logger *logging.Logger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithVersion sets the version reported in traces.
func WithVersion(version string) Option {
	return func(n *Node) {
		n.version = version
	}
}

// New opens the stores and wires every component. Nothing listens until Run.
func New(cfg *config.Config, services []blockchain.Service, opts ...Option) (*Node, error) {
	n := &Node{cfg: cfg, version: "dev"}
	for _, opt := range opts {
		opt(n)
	}

	if n.logger == nil {
		logger, closeLog, err := NewLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
		n.logger = logger
		n.closeLog = closeLog
	}

	n.metrics = metrics.NewNopMetrics()
	if cfg.Metrics.Enabled {
		pm := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
		n.metrics = pm
		n.metricsSrv = api.NewServer("metrics", cfg.Metrics.ListenAddr, pm.HTTPHandler(), cfg.API, n.logger)
	}

	tracer, shutdown, err := tracing.Setup(cfg.Tracing, n.version)
	if err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	n.tracer = tracer
	n.shutdownTracing = shutdown

	if err := n.openStores(); err != nil {
		_ = n.Close()
		return nil, err
	}

	n.chain, err = blockchain.New(n.store, n.blocks, services,
		blockchain.WithLogger(n.logger),
		blockchain.WithMetrics(n.metrics),
		blockchain.WithTracer(n.tracer),
	)
	if err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("creating blockchain: %w", err)
	}

	n.pool, err = mempool.New(cfg.Mempool, n.chain,
		mempool.WithLogger(n.logger),
		mempool.WithMetrics(n.metrics),
	)
	if err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("creating mempool: %w", err)
	}

	n.assembler = blockchain.NewAssembler(n.chain, n.pool, cfg.Blocks.MaxTxs)
	n.producer = NewProducer(n.assembler, n.pool, cfg.Blocks, n.logger)

	routerOpts := []api.Option{
		api.WithLogger(n.logger),
		api.WithMetrics(n.metrics),
		api.WithTracer(n.tracer),
	}
	if cfg.API.RateLimit > 0 {
		n.limiter = api.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateBurst)
		routerOpts = append(routerOpts, api.WithRateLimiter(n.limiter))
	}
	n.router = api.NewRouter(n.chain, n.pool, routerOpts...)
	n.public = api.NewServer("public", cfg.API.PublicAddr, n.router.Public(), cfg.API, n.logger)
	n.private = api.NewServer("private", cfg.API.PrivateAddr, n.router.Private(), cfg.API, n.logger)

	return n, nil
}

func (n *Node) openStores() error {
	if err := n.cfg.EnsureDataDirs(); err != nil {
		return fmt.Errorf("creating data directories: %w", err)
	}

	store, err := statestore.Open(n.cfg.StateStore)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	store.SetLogger(n.logger)
	n.store = store

	blocks, err := blockstore.Open(n.cfg.BlockStore)
	if err != nil {
		return fmt.Errorf("opening block store: %w", err)
	}
	n.blocks = blocks
	return nil
}

// Run serves both APIs, the metrics endpoint when enabled, and produces
// blocks until ctx is cancelled or one of them fails.
func (n *Node) Run(ctx context.Context) error {
	n.logger.Info("starting node",
		logging.ChainID(n.cfg.Node.ChainID),
		logging.Height(n.chain.Height().Int64()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.public.Run(ctx) })
	g.Go(func() error { return n.private.Run(ctx) })
	if n.metricsSrv != nil {
		g.Go(func() error { return n.metricsSrv.Run(ctx) })
	}
	g.Go(func() error { return n.producer.Run(ctx) })
	if n.limiter != nil {
		g.Go(func() error { return n.limiter.Run(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	n.logger.Info("node stopped", logging.Height(n.chain.Height().Int64()))
	return err
}

// Close releases the stores and flushes traces.
func (n *Node) Close() error {
	var errs []error
	if n.shutdownTracing != nil {
		errs = append(errs, n.shutdownTracing(context.Background()))
	}
	if n.blocks != nil {
		errs = append(errs, n.blocks.Close())
	}
	if n.store != nil {
		errs = append(errs, n.store.Close())
	}
	if n.closeLog != nil {
		errs = append(errs, n.closeLog())
		n.closeLog = nil
	}
	return errors.Join(errs...)
}

// Chain returns the blockchain.
func (n *Node) Chain() *blockchain.Blockchain { return n.chain }

// Pool returns the pending pool.
func (n *Node) Pool() *mempool.Mempool { return n.pool }

// PublicServer returns the public API server.
func (n *Node) PublicServer() *api.Server { return n.public }

// PrivateServer returns the private API server.
func (n *Node) PrivateServer() *api.Server { return n.private }

// NewLogger builds the logger described by cfg. The returned func releases
// the log file when output goes to one.
func NewLogger(cfg config.LoggingConfig) (*logging.Logger, func() error, error) {
	var w io.Writer
	closeLog := func() error { return nil }
	switch cfg.Output {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log output: %w", err)
		}
		w = f
		closeLog = f.Close
	}

	level := logging.ParseLevel(cfg.Level)
	if cfg.Format == "json" {
		return logging.NewJSONLogger(w, level), closeLog, nil
	}
	return logging.NewTextLogger(w, level), closeLog, nil
}
