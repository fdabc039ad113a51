package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/cortexctl/config"
	"github.com/dyike/cortexctl/internal/backend"
	"github.com/dyike/cortexctl/internal/logging"
)

// ErrAnalysisFailed is returned by the analyze command when the job did not
// succeed. The failure has already been rendered when it is returned.
var ErrAnalysisFailed = errors.New("analysis failed")

// app carries what every command needs once flags are parsed.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	now      func() time.Time
}

func (a *app) client() *backend.Client {
	return backend.NewClient(a.cfg.BackendURL, a.cfg.RequestTimeout)
}

// NewRootCmd creates the root command
func NewRootCmd(version string) *cobra.Command {
	cfg := config.DefaultConfig()
	a := &app{
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		closeLog: func() error { return nil },
		now:      time.Now,
	}

	var (
		backendURL string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "cortexctl",
		Short: "cortexctl - client for the multi-agent trading analysis backend",
		Long: `cortexctl submits stock analyses to a trading-analysis backend, follows the job
until it finishes and shows the buy / sell / hold recommendation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("backend") {
				cfg.BackendURL = backendURL
			}
			if debug {
				cfg.Debug = true
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}

			logger, closeLog, err := logging.New(logging.Options{
				Debug:  cfg.Debug,
				File:   cfg.LogFile,
				Stderr: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			a.logger, a.closeLog = logger, closeLog
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cmd, a)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(a))
	rootCmd.AddCommand(newProvidersCmd(a))
	rootCmd.AddCommand(newModelsCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newSymbolsCmd())
	rootCmd.AddCommand(newStubBackendCmd(a))
	rootCmd.AddCommand(newVersionCmd(version))

	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", cfg.BackendURL, "Analysis backend base URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", cfg.Debug, "Enable debug logging")

	return rootCmd
}

// newVersionCmd creates the version command
func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cortexctl %s\n", version)
		},
	}
}
