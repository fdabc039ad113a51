package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/cortexctl/internal/backend"
	"github.com/dyike/cortexctl/internal/display"
	"github.com/dyike/cortexctl/internal/flow"
	"github.com/dyike/cortexctl/internal/history"
	"github.com/dyike/cortexctl/internal/livefeed"
	"github.com/dyike/cortexctl/internal/prefs"
	"github.com/dyike/cortexctl/pkg/models"
)

type analyzeOptions struct {
	input       formInput
	live        bool
	interactive bool
	prompts     formPrompter
}

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(a *app) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [TICKER]",
		Short: "Submit an analysis and wait for the recommendation",
		Long: `Submit a trading analysis for a ticker and poll the backend until it finishes.
Values not given on the command line are taken from the last analysis.
Example: cortexctl analyze AAPL --date=2024-03-15 --analyst=market --analyst=news`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.input.Ticker = args[0]
			}
			opts.input.DepthSet = cmd.Flags().Changed("depth")
			opts.input.NotifySet = cmd.Flags().Changed("notify")
			if !cmd.Flags().Changed("live") {
				opts.live = a.cfg.LiveStatus
			}
			if opts.interactive {
				if err := requireTerminal(); err != nil {
					return err
				}
			}
			store, err := a.openPrefs()
			if err != nil {
				return err
			}
			defer a.closePrefs(store)

			_, err = runAnalysis(cmd, a, store, opts)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.input.Date, "date", "", "Analysis date in YYYY-MM-DD format")
	f.StringArrayVar(&opts.input.Analysts, "analyst", nil, "Analyst to include: market, social, news, fundamentals (repeatable)")
	f.StringVar(&opts.input.Provider, "provider", "", "LLM provider name as listed by 'cortexctl providers'")
	f.StringVar(&opts.input.QuickModel, "quick-model", "", "Quick-thinking model id")
	f.StringVar(&opts.input.DeepModel, "deep-model", "", "Deep-thinking model id")
	f.IntVar(&opts.input.Depth, "depth", defaultDepth, "Research depth (debate rounds)")
	f.StringVar(&opts.input.OpenAIKey, "openai-key", "", "OpenAI API key (defaults to the backend's stored key)")
	f.StringVar(&opts.input.AlphaVantageKey, "alpha-vantage-key", "", "Alpha Vantage API key (defaults to the backend's stored key)")
	f.StringVar(&opts.input.DiscordWebhook, "discord-webhook", "", "Discord webhook URL for notifications")
	f.BoolVar(&opts.input.Notify, "notify", false, "Send a Discord notification when the analysis finishes")
	f.BoolVar(&opts.live, "live", false, "Show live status messages from the backend websocket")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for every field")

	return cmd
}

const historyWriteTimeout = 5 * time.Second

func (a *app) openPrefs() (*prefs.Store, error) {
	store, err := prefs.Open(
		prefs.WithPath(a.cfg.PrefsPath),
		prefs.WithDebounce(a.cfg.PrefsDebounce),
		prefs.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open form state: %w", err)
	}
	return store, nil
}

func (a *app) closePrefs(store *prefs.Store) {
	if err := store.Close(); err != nil {
		a.logger.Warn("saving form state failed", "error", err)
	}
}

func (a *app) fetchProviders(ctx context.Context, client *backend.Client) []models.Provider {
	providers, err := client.Providers(ctx)
	if err != nil {
		a.logger.Warn("could not load providers", "error", err)
	}
	return providers
}

// runAnalysis performs one submission end to end and reports its outcome.
// The form is pre-filled from whatever store holds at call time.
func runAnalysis(cmd *cobra.Command, a *app, store *prefs.Store, opts analyzeOptions) (flow.Outcome, error) {
	ctx := cmdContext(cmd)
	out := cmd.OutOrStdout()
	client := a.client()
	saved := store.Get()

	var (
		providers []models.Provider
		err       error
	)
	input := opts.input
	if opts.interactive {
		providers = a.fetchProviders(ctx, client)
		prompts := opts.prompts
		if prompts == nil {
			prompts = surveyPrompter{}
		}
		input, err = promptForm(ctx, client, store, prompts, input, saved, providers)
		if err != nil {
			return flow.Outcome{}, err
		}
	}

	// Incomplete requests fail validation without touching the backend.
	req := buildRequest(input, saved, nil, providers, a.now())
	if len(req.MissingFields()) == 0 {
		if providers == nil && req.ProviderURL == "" {
			providers = a.fetchProviders(ctx, client)
		}
		var creds *models.APIConfig
		if req.OpenAIAPIKey == "" || req.AlphaVantageAPIKey == "" || req.DiscordWebhook == "" {
			if creds, err = client.Config(ctx); err != nil {
				a.logger.Warn("could not load stored credentials", "error", err)
				creds = nil
			}
		}
		req = buildRequest(input, saved, creds, providers, a.now())
		store.Update(func(f *prefs.FormState) { *f = formStateFrom(req) })
	}

	if opts.interactive {
		ok, err := PromptForConfirmation(req)
		if err != nil {
			return flow.Outcome{}, err
		}
		if !ok {
			fmt.Fprintln(out, "Analysis cancelled.")
			return flow.Outcome{State: flow.StateIdle}, nil
		}
	}

	submitOpts := []flow.Option{
		flow.WithPollInterval(a.cfg.PollInterval),
		flow.WithMaxAttempts(a.cfg.MaxPollAttempts),
		flow.WithTimeline(flow.NewTimeline(a.cfg.ProgressInterval)),
		flow.WithLogger(a.logger),
	}
	if opts.live && len(req.MissingFields()) == 0 {
		feed, err := livefeed.Dial(ctx, client.BaseURL(), a.logger)
		if err != nil {
			a.logger.Warn("live status unavailable", "error", err)
		} else {
			defer feed.Close()
			submitOpts = append(submitOpts, flow.WithStatusSource(feed))
		}
	}

	started := a.now()
	outcome := flow.NewSubmitter(client, display.NewTerminal(out), submitOpts...).Run(ctx, req)
	recordHistory(ctx, a, req, outcome, started)

	if !outcome.Succeeded() {
		return outcome, fmt.Errorf("%w: %s", ErrAnalysisFailed, outcome.Err.Message)
	}
	return outcome, nil
}

// recordHistory stores the outcome. Runs rejected before submission are
// not recorded; storage errors are logged only. The write outlives a
// cancelled run so interrupted jobs are still recorded.
func recordHistory(ctx context.Context, a *app, req models.AnalysisRequest, outcome flow.Outcome, started time.Time) {
	if outcome.Err != nil && outcome.Err.Kind == flow.KindValidation {
		return
	}
	store, err := history.Open(a.cfg.HistoryDB)
	if err != nil {
		a.logger.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	rec := history.NewRecord(req, outcome, started.UTC(), a.now())
	if _, err := store.Record(ctx, rec); err != nil {
		a.logger.Warn("recording analysis failed", "job_id", outcome.JobID, "error", err)
	}
}

// promptForm asks for every field, pre-filled from explicit input and the
// saved form state. Each answer is saved as soon as it is given.
func promptForm(ctx context.Context, client *backend.Client, store *prefs.Store, p formPrompter, in formInput, saved prefs.FormState, providers []models.Provider) (formInput, error) {
	var err error
	if in.Ticker, err = p.Ticker(firstNonEmpty(in.Ticker, saved.Ticker)); err != nil {
		return in, err
	}
	ticker := strings.ToUpper(strings.TrimSpace(in.Ticker))
	store.Update(func(f *prefs.FormState) { f.Ticker = ticker })

	if in.Date, err = p.Date(firstNonEmpty(in.Date, saved.Date)); err != nil {
		return in, err
	}
	date := in.Date
	store.Update(func(f *prefs.FormState) { f.Date = date })

	analysts := in.Analysts
	if len(analysts) == 0 {
		analysts = saved.Analysts
	}
	if in.Analysts, err = p.Analysts(analysts); err != nil {
		return in, err
	}
	picked := append([]string(nil), in.Analysts...)
	store.Update(func(f *prefs.FormState) { f.Analysts = picked })

	depth := saved.Depth
	if in.DepthSet {
		depth = in.Depth
	}
	if in.Depth, err = p.Depth(depth); err != nil {
		return in, err
	}
	in.DepthSet = true
	rounds := in.Depth
	store.Update(func(f *prefs.FormState) { f.Depth = rounds })

	provider, err := p.Provider(providers, firstNonEmpty(in.Provider, saved.Provider))
	if err != nil {
		return in, err
	}
	in.Provider = provider.Name
	store.Update(func(f *prefs.FormState) {
		if !strings.EqualFold(f.Provider, provider.Name) {
			f.QuickModel, f.DeepModel = "", ""
		}
		f.Provider = provider.Name
		f.ProviderURL = provider.URL
	})

	cat, err := client.Models(ctx, provider.Name)
	if err != nil {
		return in, fmt.Errorf("load models for %s: %w", provider.Name, err)
	}
	sameProvider := strings.EqualFold(provider.Name, saved.Provider)
	defQuick, defDeep := in.QuickModel, in.DeepModel
	if sameProvider {
		defQuick = firstNonEmpty(defQuick, saved.QuickModel)
		defDeep = firstNonEmpty(defDeep, saved.DeepModel)
	}
	if in.QuickModel, in.DeepModel, err = p.Models(cat, defQuick, defDeep); err != nil {
		return in, err
	}
	quick, deep := in.QuickModel, in.DeepModel
	store.Update(func(f *prefs.FormState) { f.QuickModel, f.DeepModel = quick, deep })

	defNotify := saved.DiscordNotify
	if in.NotifySet {
		defNotify = in.Notify
	}
	webhook, notify, err := p.Notification(firstNonEmpty(in.DiscordWebhook, saved.DiscordWebhook), defNotify)
	if err != nil {
		return in, err
	}
	in.DiscordWebhook, in.Notify, in.NotifySet = webhook, notify, true
	store.Update(func(f *prefs.FormState) { f.DiscordWebhook, f.DiscordNotify = webhook, notify })

	return in, nil
}
