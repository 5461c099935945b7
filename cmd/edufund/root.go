package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "edufund",
		Short: "Cardano wallet adapter for the EduFund donation platform",
		Long: `edufund connects to CIP-30 wallets through bridge endpoints, resolves
addresses and balances, and sends donations to student research projects.

Example:
  edufund serve
  edufund decode balance 1a004c4b40
  edufund decode network 0 00abcd`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newDecodeCmd())
	return root
}
