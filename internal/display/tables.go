package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/cortexctl/internal/history"
	"github.com/dyike/cortexctl/internal/symbols"
	"github.com/dyike/cortexctl/pkg/models"
)

// Lists renders the catalogue, history and symbol listings.
type Lists struct {
	out    io.Writer
	styles styles
}

func NewLists(w io.Writer) *Lists {
	return &Lists{out: w, styles: newStyles(lipgloss.NewRenderer(w))}
}

func (l *Lists) heading(text string) {
	fmt.Fprintln(l.out, l.styles.title.Render(text))
}

func (l *Lists) Welcome(backendURL string) {
	l.heading("cortexctl")
	fmt.Fprintln(l.out, l.styles.muted.Render("Multi-agent trading analysis client · backend "+backendURL))
	fmt.Fprintln(l.out)
}

func (l *Lists) Providers(providers []models.Provider) {
	l.heading("Providers")
	if len(providers) == 0 {
		fmt.Fprintln(l.out, l.styles.muted.Render("no providers available"))
		return
	}
	for _, p := range providers {
		fmt.Fprintf(l.out, "  %-12s %s\n", p.Name, l.styles.muted.Render(p.URL))
	}
}

func (l *Lists) Models(provider string, cat *models.ModelCatalog) {
	l.heading("Models for " + provider)
	if cat == nil || (len(cat.Quick) == 0 && len(cat.Deep) == 0) {
		fmt.Fprintln(l.out, l.styles.muted.Render("no models listed for this provider"))
		return
	}
	l.modelGroup("Quick-thinking", cat.Quick)
	l.modelGroup("Deep-thinking", cat.Deep)
}

func (l *Lists) modelGroup(label string, opts []models.ModelOption) {
	fmt.Fprintln(l.out, label+":")
	for _, m := range opts {
		fmt.Fprintf(l.out, "  %-24s %s\n", m.Name, l.styles.muted.Render(m.Value))
	}
}

// APIConfig prints which credentials are on file without revealing them.
func (l *Lists) APIConfig(cfg *models.APIConfig) {
	l.heading("Backend credentials")
	fmt.Fprintf(l.out, "  OpenAI API key:        %s\n", Mask(cfg.OpenAIAPIKey))
	fmt.Fprintf(l.out, "  Alpha Vantage API key: %s\n", Mask(cfg.AlphaVantageAPIKey))
	fmt.Fprintf(l.out, "  Discord webhook:       %s\n", Mask(cfg.DiscordWebhook))
}

// Mask keeps the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}

func (l *Lists) History(records []history.Record) {
	l.heading("Analysis history")
	if len(records) == 0 {
		fmt.Fprintln(l.out, l.styles.muted.Render("no analyses recorded yet"))
		return
	}
	for _, r := range records {
		outcome := r.FailureKind
		if r.Succeeded() {
			outcome = l.Badge(models.DecisionClass(r.Decision))
		}
		fmt.Fprintf(l.out, "  #%-4d %-8s %s  %-10s %s\n",
			r.ID, r.Ticker, r.Date, r.Provider, outcome)
	}
}

func (l *Lists) HistoryDetail(r *history.Record) {
	l.heading(fmt.Sprintf("Analysis #%d", r.ID))
	fmt.Fprintf(l.out, "  Ticker:    %s\n", r.Ticker)
	fmt.Fprintf(l.out, "  Date:      %s\n", r.Date)
	fmt.Fprintf(l.out, "  Provider:  %s (%s / %s)\n", r.Provider, r.QuickModel, r.DeepModel)
	fmt.Fprintf(l.out, "  Analysts:  %s\n", strings.Join(r.Analysts, ", "))
	fmt.Fprintf(l.out, "  Job id:    %s\n", r.JobID)
	fmt.Fprintf(l.out, "  Polls:     %d\n", r.Polls)
	fmt.Fprintf(l.out, "  Started:   %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(l.out, "  Finished:  %s\n", r.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	if r.Succeeded() {
		fmt.Fprintf(l.out, "  Decision:  %s\n", l.Badge(models.DecisionClass(r.Decision)))
		if r.Result != "" {
			fmt.Fprintln(l.out, r.Result)
		}
		return
	}
	fmt.Fprintln(l.out, l.styles.failure.Render(fmt.Sprintf("%s: %s", r.FailureKind, r.Message)))
}

func (l *Lists) Symbols(query string, matches []symbols.Symbol) {
	if len(matches) == 0 {
		fmt.Fprintln(l.out, l.styles.muted.Render(fmt.Sprintf("no symbols match %q", query)))
		return
	}
	for _, s := range matches {
		fmt.Fprintf(l.out, "  %-8s %s\n", s.Symbol, s.Name)
	}
}

func (l *Lists) Badge(class models.DecisionClass) string {
	style, ok := l.styles.badges[class]
	if !ok {
		style = l.styles.badgeBase
	}
	return style.Render(class.Label())
}
