package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/dyike/cortexctl/internal/display"
	"github.com/dyike/cortexctl/internal/history"
	"github.com/dyike/cortexctl/internal/stub"
	"github.com/dyike/cortexctl/internal/symbols"
	"github.com/dyike/cortexctl/pkg/models"
)

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the LLM providers the backend supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := a.client().Providers(cmdContext(cmd))
			if err != nil {
				return fmt.Errorf("load providers: %w", err)
			}
			display.NewLists(cmd.OutOrStdout()).Providers(providers)
			return nil
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models PROVIDER",
		Short: "List quick- and deep-thinking models of a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.client().Models(cmdContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("load models: %w", err)
			}
			display.NewLists(cmd.OutOrStdout()).Models(args[0], cat)
			return nil
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or store the backend's API credentials",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show which credentials the backend has on file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.client().Config(cmdContext(cmd))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:      %s (%s)\n", a.cfg.BackendURL, reachability(cmdContext(cmd), a))
			fmt.Fprintf(out, "Form state:   %s\n", a.cfg.PrefsPath)
			fmt.Fprintf(out, "History:      %s\n", a.cfg.HistoryDB)
			fmt.Fprintf(out, "Polling:      every %s, at most %d checks\n", a.cfg.PollInterval, a.cfg.MaxPollAttempts)
			fmt.Fprintln(out)
			display.NewLists(out).APIConfig(cfg)
			return nil
		},
	})

	var flagCreds models.APIConfig
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Store API credentials on the backend",
		Long: `Store API credentials on the backend. Only the credentials given as flags
change; the others keep their stored values. Without flags each one is prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			client := a.client()
			flags := cmd.Flags()

			given := flags.Changed("openai-key") || flags.Changed("alpha-vantage-key") || flags.Changed("discord-webhook")
			if !given && !isTerminal(os.Stdin) {
				return fmt.Errorf("no credentials given; pass --openai-key, --alpha-vantage-key or --discord-webhook")
			}

			current, err := client.Config(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			creds := *current
			if given {
				if flags.Changed("openai-key") {
					creds.OpenAIAPIKey = flagCreds.OpenAIAPIKey
				}
				if flags.Changed("alpha-vantage-key") {
					creds.AlphaVantageAPIKey = flagCreds.AlphaVantageAPIKey
				}
				if flags.Changed("discord-webhook") {
					creds.DiscordWebhook = flagCreds.DiscordWebhook
				}
			} else if creds, err = promptCredentials(creds); err != nil {
				return err
			}

			ack, err := client.SaveConfig(ctx, creds)
			if err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			if !ack.Success {
				return fmt.Errorf("backend refused the configuration: %s", ack.Message)
			}
			msg := ack.Message
			if msg == "" {
				msg = "configuration saved"
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	saveCmd.Flags().StringVar(&flagCreds.OpenAIAPIKey, "openai-key", "", "OpenAI API key")
	saveCmd.Flags().StringVar(&flagCreds.AlphaVantageAPIKey, "alpha-vantage-key", "", "Alpha Vantage API key")
	saveCmd.Flags().StringVar(&flagCreds.DiscordWebhook, "discord-webhook", "", "Discord webhook URL")
	configCmd.AddCommand(saveCmd)

	return configCmd
}

func reachability(ctx context.Context, a *app) string {
	health, err := a.client().Health(ctx)
	if err != nil {
		a.logger.Debug("health check failed", "error", err)
		return "unreachable"
	}
	if health.Status == "" {
		return "reachable"
	}
	return health.Status
}

// promptCredentials asks for each secret; an empty answer keeps the stored
// value.
func promptCredentials(current models.APIConfig) (models.APIConfig, error) {
	out := current
	fields := []struct {
		label string
		dst   *string
	}{
		{"OpenAI API key", &out.OpenAIAPIKey},
		{"Alpha Vantage API key", &out.AlphaVantageAPIKey},
		{"Discord webhook URL", &out.DiscordWebhook},
	}
	for _, f := range fields {
		var answer string
		prompt := &survey.Password{
			Message: fmt.Sprintf("%s [%s]:", f.label, display.Mask(*f.dst)),
		}
		if err := survey.AskOne(prompt, &answer); err != nil {
			return current, err
		}
		if answer != "" {
			*f.dst = answer
		}
	}
	return out, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	list := func(cmd *cobra.Command) error {
		store, err := history.Open(a.cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		records, err := store.List(cmdContext(cmd), limit)
		if err != nil {
			return err
		}
		display.NewLists(cmd.OutOrStdout()).History(records)
		return nil
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show past analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return list(cmd)
		},
	}
	historyCmd.PersistentFlags().IntVar(&limit, "limit", 20, "Number of analyses to list")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return list(cmd)
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show one analysis with its full result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid analysis id %q", args[0])
			}
			store, err := history.Open(a.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Get(cmdContext(cmd), id)
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no analysis with id %d", id)
			}
			if err != nil {
				return err
			}
			display.NewLists(cmd.OutOrStdout()).HistoryDetail(rec)
			return nil
		},
	})

	return historyCmd
}

func newSymbolsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "symbols QUERY",
		Short: "Search ticker symbols by symbol or company name",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			display.NewLists(cmd.OutOrStdout()).Symbols(args[0], symbols.Search(args[0], limit))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", symbols.DefaultLimit, "Maximum number of matches")
	return cmd
}

func newStubBackendCmd(a *app) *cobra.Command {
	var (
		addr          string
		completeAfter int
	)
	cmd := &cobra.Command{
		Use:   "stub-backend",
		Short: "Run a local stand-in for the analysis backend",
		Long: `Serve the analysis backend API with canned providers and models. Jobs finish
after a fixed number of status checks, which makes the client testable offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := stub.New(stub.WithCompleteAfter(completeAfter), stub.WithLogger(a.logger))
			fmt.Fprintf(cmd.OutOrStdout(), "stub backend listening on %s\n", addr)
			return srv.ListenAndServe(cmdContext(cmd), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "Listen address")
	cmd.Flags().IntVar(&completeAfter, "complete-after", stub.DefaultCompleteAfter, "Status checks reported as running before a job completes")
	return cmd
}
