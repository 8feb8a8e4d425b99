package node

import (
	"context"
	"time"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/logging"
)

// Producer drives full block assembly on a timer. It is the single-node
// stand-in for consensus.
type Producer struct {
	assembler   *blockchain.Assembler
	pool        interface{ Size() int }
	interval    time.Duration
	createEmpty bool
	logger      *logging.Logger
}

// NewProducer creates a producer assembling from pool every cfg.Interval.
func NewProducer(assembler *blockchain.Assembler, pool interface{ Size() int }, cfg config.BlocksConfig, logger *logging.Logger) *Producer {
	interval := cfg.Interval.Duration()
	if interval <= 0 {
		interval = time.Second
	}
	return &Producer{
		assembler:   assembler,
		pool:        pool,
		interval:    interval,
		createEmpty: cfg.CreateEmpty,
		logger:      logger.WithComponent("producer"),
	}
}

// Run produces blocks until ctx is cancelled. A failed commit stops it.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				p.logger.Error("block production failed", logging.Error(err))
				return err
			}
		}
	}
}

// Tick assembles one block if anything is pending or empty blocks are enabled.
func (p *Producer) Tick(ctx context.Context) error {
	if !p.createEmpty && p.pool.Size() == 0 {
		return nil
	}
	_, err := p.assembler.CreateBlock(ctx)
	return err
}
