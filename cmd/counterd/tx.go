package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alekseysidorov/exonum-harness/client"
	"github.com/alekseysidorov/exonum-harness/keys"
	"github.com/alekseysidorov/exonum-harness/services/counter"
)

var (
	txNode    string
	txPrivate string
	txKeyFile string
	txBy      uint64
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Submit counter transactions and query the counter",
}

var txIncrementCmd = &cobra.Command{
	Use:   "increment",
	Short: "Increment the counter",
	Long: `Sign an increment with the given key and submit it to the public API.

Example:
  counterd tx increment --by 5 --key alice.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := keys.Load(txKeyFile)
		if err != nil {
			return err
		}
		return submit(cmd, client.New(txNode), counter.PathCount, counter.NewTxIncrement(kp, txBy))
	},
}

var txResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the counter (administrator only)",
	Long: `Sign a reset with the given key and submit it to the private API.

Example:
  counterd tx reset --key admin.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := keys.Load(txKeyFile)
		if err != nil {
			return err
		}
		return submit(cmd, client.New(txPrivate), counter.PathReset, counter.NewTxReset(kp))
	},
}

var txCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the committed counter value",
	RunE: func(cmd *cobra.Command, args []string) error {
		var count uint64
		if err := client.New(txNode).Get(cmd.Context(), counter.PathCount, &count); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), count)
		return nil
	},
}

func init() {
	txCmd.PersistentFlags().StringVar(&txNode, "node", "http://127.0.0.1:8200", "public API address")
	txCmd.PersistentFlags().StringVar(&txPrivate, "private", "http://127.0.0.1:8091", "private API address")

	txIncrementCmd.Flags().StringVar(&txKeyFile, "key", "", "signing key file")
	txIncrementCmd.Flags().Uint64Var(&txBy, "by", 1, "amount to add")
	_ = txIncrementCmd.MarkFlagRequired("key")

	txResetCmd.Flags().StringVar(&txKeyFile, "key", "", "signing key file")
	_ = txResetCmd.MarkFlagRequired("key")

	txCmd.AddCommand(txIncrementCmd, txResetCmd, txCountCmd)
	rootCmd.AddCommand(txCmd)
}

func submit(cmd *cobra.Command, c *client.Client, path string, tx counter.Tx) error {
	hash, err := c.SendTx(cmd.Context(), path, tx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted transaction: %s\n", hash)
	return nil
}
