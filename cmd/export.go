package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chinmay1088/rpchist/api"
	"github.com/chinmay1088/rpchist/config"
	chain "github.com/chinmay1088/rpchist/chains/solana"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ExportData is the JSON export document.
type ExportData struct {
	ExportDate string              `json:"export_date"`
	Service    string              `json:"service"`
	Address    string              `json:"address"`
	Count      int                 `json:"count"`
	Signatures []api.SignatureInfo `json:"signatures"`
}

type exportOptions struct {
	pageOptions
	csv    bool
	json   bool
	txt    bool
	outDir string
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export <address>",
		Short: "Export signature history",
		Long: `Export the signature history of an address to files.

File formats:
  --csv        Export to CSV format (default)
  --json       Export to JSON format
  --txt        Export to txt format

Files are written to ~/.rpchist/exports unless --out is given.

Examples:
  rpchist export <address>                       # CSV, 10 pages of 100
  rpchist export <address> --json --pages 3      # JSON, 3 pages
  rpchist export <address> --csv --txt --out .   # CSV and txt in the current directory`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, a, args[0], opts)
		},
	}
	opts.register(cmd, 10)
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "Export to CSV format")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Export to JSON format")
	cmd.Flags().BoolVar(&opts.txt, "txt", false, "Export to txt format")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "output directory (default ~/.rpchist/exports)")
	return cmd
}

func runExport(cmd *cobra.Command, a *app, address string, opts exportOptions) error {
	if !opts.csv && !opts.json && !opts.txt {
		opts.csv = true
	}
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

	out := cmd.OutOrStdout()
	progressOut := cmd.ErrOrStderr()
	if a.quiet {
		progressOut = io.Discard
	}

	fmt.Fprintf(out, "📊 Exporting signature history for %s...\n", address)
	bar := progressbar.NewOptions(opts.pages+1,
		progressbar.OptionSetWriter(progressOut),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription("[cyan][1/2][reset] Fetching pages..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:     "[green]=[reset]",
			SaucerHead: "[green]>[reset]",
			BarStart:   "[",
			BarEnd:     "]",
		}),
	)

	raw, err := fetchSignaturePages(cmd.Context(), client, address, opts.pageOptions, func(page int, records []api.Object) {
		_ = bar.Add(1)
		a.log.Debug("Fetched signature page", zap.Int("page", page), zap.Int("records", len(records)))
	})
	if err != nil {
		return a.requestError(err, "signatures for "+address)
	}

	sigs, err := api.DecodeSignatures(raw)
	if err != nil {
		return fmt.Errorf("failed to collect data: %w", err)
	}

	_ = bar.Set(opts.pages)
	bar.Describe("[cyan][2/2][reset] Writing export files...")

	exportDir, err := prepareExportDirectory(opts.outDir)
	if err != nil {
		return fmt.Errorf("failed to prepare export directory: %w", err)
	}

	exportData := &ExportData{
		ExportDate: time.Now().UTC().Format("2006-01-02 15:04:05"),
		Service:    client.BaseURL(),
		Address:    address,
		Count:      len(sigs),
		Signatures: sigs,
	}
	files, err := writeExportFiles(exportData, exportDir, opts)
	if err != nil {
		return err
	}

	_ = bar.Finish()
	bar.Describe("[green][✓][reset] Export completed!")
	fmt.Fprintln(progressOut)

	fmt.Fprintf(out, "📁 Exported %d signatures:\n", len(sigs))
	for _, file := range files {
		fmt.Fprintf(out, "   %s\n", file)
	}
	return nil
}

func prepareExportDirectory(outDir string) (string, error) {
	if outDir == "" {
		dir, err := config.Dir()
		if err != nil {
			return "", err
		}
		outDir = filepath.Join(dir, "exports")
	}
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return "", err
	}
	return outDir, nil
}

func writeExportFiles(exportData *ExportData, exportDir string, opts exportOptions) ([]string, error) {
	timestamp := time.Now().Format("20060102_150405")
	base := filepath.Join(exportDir, fmt.Sprintf("rpchist_%s_%s", shorten(exportData.Address, 6), timestamp))

	var files []string
	// write csv file
	if opts.csv {
		if err := writeCSVFile(base+".csv", exportData); err != nil {
			return nil, fmt.Errorf("failed to write CSV export: %w", err)
		}
		files = append(files, base+".csv")
	}

	// write json file
	if opts.json {
		if err := writeJSONFile(base+".json", exportData); err != nil {
			return nil, fmt.Errorf("failed to write JSON export: %w", err)
		}
		files = append(files, base+".json")
	}

	// write txt file
	if opts.txt {
		if err := writeTXTFile(base+".txt", exportData); err != nil {
			return nil, fmt.Errorf("failed to write txt export: %w", err)
		}
		files = append(files, base+".txt")
	}

	return files, nil
}

func writeCSVFile(filename string, exportData *ExportData) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	// write header
	if err := writer.Write([]string{"signature", "slot", "block_time", "status", "memo"}); err != nil {
		return err
	}

	for _, sig := range exportData.Signatures {
		if err := writer.Write([]string{
			sig.Signature,
			strconv.FormatUint(sig.Slot, 10),
			exportTime(sig.BlockTime),
			exportStatus(sig.Failed()),
			memoText(sig.Memo),
		}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeJSONFile(filename string, exportData *ExportData) error {
	data, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}

func writeTXTFile(filename string, exportData *ExportData) error {
	var content strings.Builder
	content.WriteString("RPCHIST SIGNATURE EXPORT\n")
	content.WriteString("========================\n\n")
	content.WriteString(fmt.Sprintf("Export Date: %s UTC\n", exportData.ExportDate))
	content.WriteString(fmt.Sprintf("Service: %s\n", exportData.Service))
	content.WriteString(fmt.Sprintf("Address: %s\n", exportData.Address))
	content.WriteString(fmt.Sprintf("\nSignatures (%d):\n", exportData.Count))

	for i, sig := range exportData.Signatures {
		content.WriteString(fmt.Sprintf("  %d. %s\n", i+1, sig.Signature))
		content.WriteString(fmt.Sprintf("     Slot: %d | Time: %s | Status: %s\n",
			sig.Slot, exportTime(sig.BlockTime), exportStatus(sig.Failed())))
		if sig.Memo != nil {
			content.WriteString(fmt.Sprintf("     Memo: %s\n", *sig.Memo))
		}
	}

	return os.WriteFile(filename, []byte(content.String()), 0600)
}

func exportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func exportStatus(failed bool) string {
	if failed {
		return "failed"
	}
	return "success"
}

func memoText(memo *string) string {
	if memo == nil {
		return ""
	}
	return *memo
}
