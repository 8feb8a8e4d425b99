package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alekseysidorov/exonum-harness/keys"
)

var keysSeed string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage transaction signing keys",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate <output-file>",
	Short: "Generate a new signing key",
	Long: `Generate a new Ed25519 key pair for signing transactions.

With --seed the key is derived from the SHA-256 digest of the passphrase,
so the same passphrase always yields the same key.

Example:
  counterd keys generate alice.json
  counterd keys generate admin.json --seed "correct horse battery staple"`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysGenerate,
}

var keysShowCmd = &cobra.Command{
	Use:   "show <key-file>",
	Short: "Show the public key of a key file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := keys.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Public Key: %s\n", kp.Public)
		return nil
	},
}

func init() {
	keysGenerateCmd.Flags().StringVar(&keysSeed, "seed", "", "derive the key from a passphrase")
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysShowCmd)
	rootCmd.AddCommand(keysCmd)
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	var kp keys.KeyPair
	if keysSeed != "" {
		kp = keys.FromPassphrase(keysSeed)
	} else {
		var err error
		if kp, err = keys.Generate(); err != nil {
			return err
		}
	}

	if err := kp.Save(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated key: %s\n", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "Public Key:    %s\n", kp.Public)
	return nil
}
