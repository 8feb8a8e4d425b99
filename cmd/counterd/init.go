package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/keys"
)

var (
	initChainID  string
	initDataDir  string
	initAdminKey string
	initOverride bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new node",
	Long: `Initialize a node directory with a configuration file.

This command creates:
  - config.toml: Node configuration
  - data/: Data directory for blocks and state

Example:
  counterd init --chain-id counter-1 --admin-key admin.json`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initChainID, "chain-id", "counter-testnet-1", "chain ID")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "directory for configuration and data")
	initCmd.Flags().StringVar(&initAdminKey, "admin-key", "", "key file whose public key administers the counter (default: the well-known test key)")
	initCmd.Flags().BoolVar(&initOverride, "force", false, "override existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := initDataDir
	if dataDir == "" {
		dataDir = "."
	}

	configPath := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !initOverride {
		return fmt.Errorf("config.toml already exists; use --force to override")
	}

	cfg := config.DefaultConfig()
	cfg.Node.ChainID = initChainID
	cfg.StateStore.Path = filepath.Join(dataDir, "data", "state")
	cfg.BlockStore.Path = filepath.Join(dataDir, "data", "blockstore")

	if initAdminKey != "" {
		kp, err := keys.Load(initAdminKey)
		if err != nil {
			return fmt.Errorf("loading admin key: %w", err)
		}
		cfg.Counter.AdminKey = kp.Public.String()
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dataDir, err)
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}
	if err := config.WriteConfigFile(configPath, cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized counter node\n")
	fmt.Fprintf(out, "  Chain ID:    %s\n", cfg.Node.ChainID)
	fmt.Fprintf(out, "  Admin key:   %s\n", cfg.Counter.AdminKey)
	fmt.Fprintf(out, "  Config:      %s\n", configPath)
	fmt.Fprintf(out, "  Data dir:    %s\n", filepath.Join(dataDir, "data"))
	return nil
}
