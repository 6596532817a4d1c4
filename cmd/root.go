package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/chinmay1088/rpchist/api"
	"github.com/chinmay1088/rpchist/config"
	"github.com/chinmay1088/rpchist/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	version = "0.3.0"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgFile string
	output  string
	strict  bool
	verbose bool
	quiet   bool

	cfg    *config.Config
	log    *zap.Logger
	client *api.HistoricalClient
}

// newRootCmd builds the command tree. Each call returns independent flag
// state, which lets tests run commands repeatedly.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New(), log: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "rpchist",
		Short: "Query a historical Solana block and transaction service",
		Long: `rpchist is a command-line client for a historical ledger service. It looks up
blocks by slot, transactions by signature, and the signature history of an
address over plain HTTP GET requests.

Features:
  • Block, transaction and signature-history lookups
  • Commitment levels: processed, confirmed, finalized
  • Manual paging with before/until cursors
  • CSV, JSON and text export of signature history
  • Configurable endpoint and timeout

Examples:
  rpchist block 250000000                      # Fetch a finalized block
  rpchist tx 5VERv8NMvzbJMEkV8xnrLkEaWRt...     # Fetch a transaction
  rpchist sigs Vote111111111111111111111111111111111111111 --limit 20
  rpchist export <address> --pages 5 --csv     # Export signature history
  rpchist endpoint http://hist.internal:8080   # Save the service URL`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.rpchist/config.yaml)")
	flags.StringP("url", "u", api.DefaultBaseURL, "base URL of the history service")
	flags.DurationP("timeout", "t", api.DefaultTimeout, "per-request timeout")
	flags.StringP("commitment", "c", string(api.DefaultCommitment), "commitment level: processed, confirmed or finalized")
	flags.StringVarP(&a.output, "output", "o", outputAuto, "output format: auto, text or json")
	flags.BoolVar(&a.strict, "strict", false, "reject malformed slots, signatures and addresses before sending")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only log errors, hide hints and progress")

	for _, key := range []string{"url", "timeout", "commitment"} {
		// Lookup never fails for flags registered above.
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	// Add subcommands
	rootCmd.AddCommand(newBlockCmd(a))
	rootCmd.AddCommand(newTxCmd(a))
	rootCmd.AddCommand(newSigsCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newEndpointCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd, a
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd, a := newRootCmd()
	return a.execute(ctx, rootCmd)
}

// execute runs the command and always tears down afterwards. cobra skips
// post-run hooks when a command fails.
func (a *app) execute(ctx context.Context, rootCmd *cobra.Command) error {
	defer a.teardown()
	return rootCmd.ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	switch a.output {
	case outputAuto, outputText, outputJSON:
	default:
		return fmt.Errorf("invalid output format: %s. Use 'auto', 'text' or 'json'", a.output)
	}

	log, err := logger.New(logger.Level(a.verbose, a.quiet))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.log = log

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log.Debug("Loaded configuration",
		zap.String("command", cmd.Name()),
		zap.String("url", cfg.URL),
		zap.Duration("timeout", cfg.Timeout),
		zap.String("commitment", cfg.Commitment),
	)
	return nil
}

// historicalClient builds the client on first use, so commands that never
// talk to the service do not need a reachable URL.
func (a *app) historicalClient() (*api.HistoricalClient, error) {
	if a.client != nil {
		return a.client, nil
	}
	client, err := api.NewHistoricalClient(a.cfg.URL, api.WithTimeout(a.cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	a.client = client
	return client, nil
}

func (a *app) commitment() api.Commitment {
	return api.Commitment(a.cfg.Commitment)
}

func (a *app) teardown() {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	_ = a.log.Sync()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rpchist v%s\n", version)
		},
	}
}
