package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/chinmay1088/rpchist/api"
	chain "github.com/chinmay1088/rpchist/chains/solana"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	maxPages = 50
	maxLimit = 1000
)

// signatureLister is the part of api.HistoricalClient the pager needs.
type signatureLister interface {
	GetSignaturesForAddress(ctx context.Context, address string, opts api.SignaturesOptions) ([]api.Object, error)
}

type pageOptions struct {
	limit  int
	before string
	until  string
	pages  int
}

func (o *pageOptions) register(cmd *cobra.Command, defaultPages int) {
	cmd.Flags().IntVarP(&o.limit, "limit", "l", api.DefaultSignatureLimit, fmt.Sprintf("signatures per page (1-%d)", maxLimit))
	cmd.Flags().StringVar(&o.before, "before", "", "start searching backwards from this signature")
	cmd.Flags().StringVar(&o.until, "until", "", "stop at this signature")
	cmd.Flags().IntVarP(&o.pages, "pages", "p", defaultPages, fmt.Sprintf("number of pages to walk (1-%d)", maxPages))
}

func (o *pageOptions) validate(strict bool) error {
	if o.limit < 1 || o.limit > maxLimit {
		return fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	if o.pages < 1 || o.pages > maxPages {
		return fmt.Errorf("pages must be between 1 and %d", maxPages)
	}
	if !strict {
		return nil
	}
	for _, cursor := range []string{o.before, o.until} {
		if cursor == "" {
			continue
		}
		if _, err := chain.ParseSignature(cursor); err != nil {
			return fmt.Errorf("invalid cursor: %w", err)
		}
	}
	return nil
}

func newSigsCmd(a *app) *cobra.Command {
	var opts pageOptions

	cmd := &cobra.Command{
		Use:     "sigs <address>",
		Aliases: []string{"signatures"},
		Short:   "Show signature history for an address",
		Long: `Show the signature history of an address, newest first as returned by the
service. One request fetches one page; --pages walks further back by passing
the last signature of each page as the next --before cursor.

Examples:
  rpchist sigs <address>                        # Latest 100 signatures
  rpchist sigs <address> --limit 10 --pages 3   # Three pages of 10
  rpchist sigs <address> --before <signature>   # Continue from a cursor
  rpchist sigs <address> --until <signature>    # Stop at a known signature`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSigs(cmd, a, args[0], opts)
		},
	}
	opts.register(cmd, 1)
	return cmd
}

func runSigs(cmd *cobra.Command, a *app, address string, opts pageOptions) error {
	if err := opts.validate(a.strict); err != nil {
		return err
	}
	if a.strict {
		if _, err := chain.ParseAddress(address); err != nil {
			return err
		}
	}

	client, err := a.historicalClient()
	if err != nil {
		return err
	}

	start := time.Now()
	raw, err := fetchSignaturePages(cmd.Context(), client, address, opts, func(page int, records []api.Object) {
		a.log.Debug("Fetched signature page",
			zap.String("address", address),
			zap.Int("page", page),
			zap.Int("records", len(records)),
		)
	})
	if err != nil {
		return a.requestError(err, "signatures for "+address)
	}

	out := cmd.OutOrStdout()
	if a.wantJSON() {
		if raw == nil {
			raw = []api.Object{}
		}
		return printJSON(out, raw)
	}

	sigs, err := api.DecodeSignatures(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "📜 Signature history for %s\n", color.CyanString(address))
	if len(sigs) == 0 {
		fmt.Fprintln(out, "   No signatures found")
		return nil
	}
	renderSignatureTable(out, sigs)

	if !a.quiet {
		fmt.Fprintf(out, "\n⏱️ Loaded %d signatures in %v\n", len(sigs), time.Since(start).Round(10*time.Millisecond))
		if len(sigs) >= opts.limit*opts.pages {
			fmt.Fprintf(out, "💡 Older signatures: --before %s\n", sigs[len(sigs)-1].Signature)
		}
	}
	return nil
}

// fetchSignaturePages requests up to opts.pages pages, chaining the last
// signature of each page into the next request's before cursor. It stops
// early on a short page or when a record carries no signature to continue from.
func fetchSignaturePages(ctx context.Context, lister signatureLister, address string, opts pageOptions, onPage func(page int, records []api.Object)) ([]api.Object, error) {
	var all []api.Object
	before := opts.before

	for page := 1; page <= opts.pages; page++ {
		records, err := lister.GetSignaturesForAddress(ctx, address, api.SignaturesOptions{
			Limit:  opts.limit,
			Before: before,
			Until:  opts.until,
		})
		if err != nil {
			return nil, err
		}
		if onPage != nil {
			onPage(page, records)
		}
		all = append(all, records...)

		if len(records) < opts.limit {
			break
		}
		next, ok := records[len(records)-1]["signature"].(string)
		if !ok || next == "" || next == before {
			break
		}
		before = next
	}
	return all, nil
}

func renderSignatureTable(w io.Writer, sigs []api.SignatureInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Signature", "Slot", "Time", "Status", "Memo"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for i, sig := range sigs {
		memo := ""
		if sig.Memo != nil {
			memo = *sig.Memo
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			shorten(sig.Signature, 10),
			strconv.FormatUint(sig.Slot, 10),
			formatTime(sig.BlockTime),
			formatStatus(sig.Failed()),
			memo,
		})
	}
	table.Render()
}
