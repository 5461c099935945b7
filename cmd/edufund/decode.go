package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AlexZinkM/edufund/cardano"
	"github.com/AlexZinkM/edufund/internal/common"
	"github.com/AlexZinkM/edufund/internal/logging"
)

func newDecodeCmd() *cobra.Command {
	var (
		threshold uint64
		fallback  uint64
		verbose   bool
	)

	decode := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw wallet responses offline",
	}

	balance := &cobra.Command{
		Use:   "balance <raw>",
		Short: "Run the balance decoding cascade on a raw getBalance value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cardano.BalanceOptions{PlausibilityThresholdADA: threshold, FallbackLovelace: fallback}
			if verbose {
				logger, err := logging.NewWithOutput(cmd.ErrOrStderr(), "debug", "text")
				if err != nil {
					return err
				}
				opts.Logger = logger
			}
			rec := cardano.DecodeBalance(args[0], nil, opts)
			return printJSON(cmd.OutOrStdout(), struct {
				cardano.BalanceRecord
				ADA string `json:"ada"`
			}{rec, common.LovelaceToADA(rec.Lovelace)})
		},
	}
	balance.Flags().Uint64Var(&threshold, "threshold-ada", cardano.DefaultPlausibilityThresholdADA, "reject decoded values at or above this many ADA")
	balance.Flags().Uint64Var(&fallback, "fallback-lovelace", cardano.DefaultFallbackLovelace, "value reported when every strategy fails")
	balance.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every strategy attempt to stderr")

	address := &cobra.Command{
		Use:   "address <raw>",
		Short: "Render a raw wallet address for display",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), cardano.NewAddressRecord(args[0], "cli"))
		},
	}

	network := &cobra.Command{
		Use:   "network <reported-id> <raw-address>",
		Short: "Reconcile a reported network id with an address",
		Long:  "Reconcile a reported network id with an address. Pass \"-\" as the id when the wallet reported none.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reported *int
			if args[0] != "-" {
				id, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid network id %q: %w", args[0], err)
				}
				reported = &id
			}
			hint := cardano.HintMainnet
			if cardano.IsTestnetAddress(args[1]) {
				hint = cardano.HintTestnet
			}
			return printJSON(cmd.OutOrStdout(), cardano.Reconcile(reported, hint))
		},
	}

	decode.AddCommand(balance, address, network)
	return decode
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
