package cmd

import (
	"fmt"
	"time"

	"github.com/chinmay1088/rpchist/api"
	chain "github.com/chinmay1088/rpchist/chains/solana"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTxCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "tx <signature>",
		Aliases: []string{"transaction"},
		Short:   "Fetch a transaction by signature",
		Long: `Fetch a transaction by its signature at the selected commitment level.

Examples:
  rpchist tx 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW
  rpchist tx <signature> -c confirmed -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTx(cmd, a, args[0])
		},
	}
}

func runTx(cmd *cobra.Command, a *app, signature string) error {
	if a.strict {
		if _, err := chain.ParseSignature(signature); err != nil {
			return err
		}
	}

	client, err := a.historicalClient()
	if err != nil {
		return err
	}

	start := time.Now()
	raw, err := client.GetTransaction(cmd.Context(), signature, a.commitment())
	if err != nil {
		return a.requestError(err, "transaction "+signature)
	}
	a.log.Debug("Fetched transaction", zap.String("signature", signature), zap.Duration("elapsed", time.Since(start)))

	out := cmd.OutOrStdout()
	if a.wantJSON() {
		return printJSON(out, raw)
	}

	tx, err := api.DecodeTransaction(raw)
	if err != nil {
		return err
	}
	if tx.Signature == "" {
		tx.Signature = signature
	}

	fmt.Fprintf(out, "🧾 Transaction %s\n", color.CyanString(tx.Signature))
	fmt.Fprintf(out, "   Status:        %s\n", formatStatus(tx.Failed()))
	fmt.Fprintf(out, "   Slot:          %d\n", tx.Slot)
	fmt.Fprintf(out, "   Time:          %s\n", formatTime(tx.Time()))
	fmt.Fprintf(out, "   Signer:        %s\n", tx.Signer)
	fmt.Fprintf(out, "   Fee:           %s SOL\n", tx.FeeSOL().String())
	fmt.Fprintf(out, "   Compute units: %d\n", tx.ComputeUnits)
	return nil
}

