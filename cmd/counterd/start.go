package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/node"
	"github.com/alekseysidorov/exonum-harness/services/counter"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the node",
	Long: `Start the node with the specified configuration.

The node will run until interrupted (Ctrl+C) or receives a termination signal.

Example:
  counterd start --config config.toml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	svc, err := counter.FromConfig(cfg.Counter)
	if err != nil {
		return err
	}

	n, err := node.New(cfg, []blockchain.Service{svc}, node.WithVersion(Version))
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}
	defer n.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := n.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running node: %w", err)
	}
	return nil
}
