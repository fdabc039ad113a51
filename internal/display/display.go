// Package display renders analysis progress and results to a terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/cortexctl/internal/flow"
	"github.com/dyike/cortexctl/pkg/models"
)

const (
	panelWidth   = 80
	progressBars = 40
)

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	progress  lipgloss.Style
	status    lipgloss.Style
	muted     lipgloss.Style
	failure   lipgloss.Style
	badgeBase lipgloss.Style
	badges    map[models.DecisionClass]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	badgeBase := r.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Padding(0, 1)

	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1),
		header: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(panelWidth),
		progress: r.NewStyle().
			Foreground(lipgloss.Color("#10B981")),
		status: r.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")),
		muted: r.NewStyle().
			Foreground(lipgloss.Color("#6B7280")),
		failure: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#EF4444")).
			Padding(0, 1),
		badgeBase: badgeBase,
		badges: map[models.DecisionClass]lipgloss.Style{
			models.DecisionBuy:  badgeBase.Background(lipgloss.Color("#16A34A")),
			models.DecisionSell: badgeBase.Background(lipgloss.Color("#DC2626")),
			models.DecisionHold: badgeBase.Background(lipgloss.Color("#D97706")),
		},
	}
}

// Terminal implements flow.UI on top of an io.Writer.
type Terminal struct {
	out    io.Writer
	styles styles

	mu      sync.Mutex
	trigger bool
	last    flow.Stage
}

var _ flow.UI = (*Terminal)(nil)

// NewTerminal renders to w. Color output follows w's terminal capabilities;
// plain writers such as buffers get unstyled text.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		out:     w,
		styles:  newStyles(lipgloss.NewRenderer(w)),
		trigger: true,
	}
}

// TriggerEnabled reports whether a new analysis may be started.
func (t *Terminal) TriggerEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trigger
}

func (t *Terminal) SetTriggerEnabled(enabled bool) {
	t.mu.Lock()
	t.trigger = enabled
	t.mu.Unlock()
}

func (t *Terminal) ShowSubmitting(req models.AnalysisRequest) {
	analysts := make([]string, 0, len(req.Analysts))
	for _, a := range req.Analysts {
		analysts = append(analysts, a.DisplayName())
	}
	header := fmt.Sprintf("Analysis: %s | Date: %s | Provider: %s\nModels: %s / %s | Depth: %d\nAnalysts: %s",
		req.Ticker, req.Date, req.LLMProvider,
		req.QuickThinkModel, req.DeepThinkModel, req.ResearchDepth,
		strings.Join(analysts, ", "))
	fmt.Fprintln(t.out, t.styles.header.Render(header))
}

func (t *Terminal) ShowProgress(stage flow.Stage) {
	t.mu.Lock()
	t.last = stage
	t.mu.Unlock()
	fmt.Fprintln(t.out, t.styles.progress.Render(ProgressBar(stage.Percent))+" "+stage.Text)
}

func (t *Terminal) ShowStatus(message string) {
	fmt.Fprintln(t.out, t.styles.status.Render("» "+message))
}

func (t *Terminal) ShowSuccess(s flow.Success) {
	fmt.Fprintln(t.out, t.styles.progress.Render(ProgressBar(100))+" Analysis complete")
	fmt.Fprintln(t.out)
	fmt.Fprintf(t.out, "%s %s\n", t.styles.title.Render("Decision"), t.Badge(s.Decision))

	if s.Result != nil {
		if text := strings.TrimSpace(s.Result.Decision); text != "" {
			fmt.Fprintln(t.out, t.styles.muted.Render(text))
		}
		fmt.Fprintln(t.out, t.styles.title.Render("Result"))
		fmt.Fprintln(t.out, s.Result.Pretty())
	}
	if s.JobID != "" {
		fmt.Fprintln(t.out, t.styles.muted.Render("analysis id: "+s.JobID))
	}
}

func (t *Terminal) ShowFailure(message string) {
	fmt.Fprintln(t.out, t.styles.failure.Render("Error: "+message))
}

// LastStage is the most recent timeline stage shown.
func (t *Terminal) LastStage() flow.Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Badge renders the decision label with its class color.
func (t *Terminal) Badge(class models.DecisionClass) string {
	style, ok := t.styles.badges[class]
	if !ok {
		style = t.styles.badgeBase
	}
	return style.Render(class.Label())
}

// ProgressBar draws a fixed-width bar for percent in [0, 100].
func ProgressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * progressBars / 100
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", progressBars-filled),
		percent)
}
