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

func newBlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "block <slot>",
		Short: "Fetch a block by slot",
		Long: `Fetch a block by slot number at the selected commitment level.

Examples:
  rpchist block 250000000                   # Finalized block
  rpchist block 250000000 -c confirmed      # Confirmed block
  rpchist block 250000000 -o json           # Raw JSON payload`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlock(cmd, a, args[0])
		},
	}
}

func runBlock(cmd *cobra.Command, a *app, arg string) error {
	slot, err := chain.ParseSlot(arg)
	if err != nil {
		return err
	}

	client, err := a.historicalClient()
	if err != nil {
		return err
	}

	start := time.Now()
	raw, err := client.GetBlock(cmd.Context(), slot, a.commitment())
	if err != nil {
		return a.requestError(err, fmt.Sprintf("block %d", slot))
	}
	a.log.Debug("Fetched block", zap.Uint64("slot", slot), zap.Duration("elapsed", time.Since(start)))

	out := cmd.OutOrStdout()
	if a.wantJSON() {
		return printJSON(out, raw)
	}

	block, err := api.DecodeBlock(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "📦 Block %s\n", color.CyanString("%d", block.Slot))
	fmt.Fprintf(out, "   Commitment:   %s\n", a.commitment())
	fmt.Fprintf(out, "   Blockhash:    %s\n", block.Blockhash)
	fmt.Fprintf(out, "   Parent slot:  %d\n", block.ParentSlot)
	fmt.Fprintf(out, "   Height:       %d\n", block.Height)
	fmt.Fprintf(out, "   Time:         %s\n", formatTime(block.Time()))
	fmt.Fprintf(out, "   Transactions: %d\n", len(block.Transactions))
	return nil
}
