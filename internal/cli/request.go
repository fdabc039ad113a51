package cli

import (
	"strings"
	"time"

	"github.com/dyike/cortexctl/internal/prefs"
	"github.com/dyike/cortexctl/pkg/models"
)

const (
	dateLayout   = "2006-01-02"
	defaultDepth = 1
)

// ResearchDepth options offered by the prompts.
var depthOptions = []struct {
	Label  string
	Rounds int
}{
	{"Shallow - quick research, few debate rounds", 1},
	{"Medium - moderate debate and strategy rounds", 3},
	{"Deep - thorough research and long debates", 5},
}

// formInput is what the user gave on the command line. Empty strings and
// unset flags fall back to the saved form state.
type formInput struct {
	Ticker          string
	Date            string
	Analysts        []string
	Provider        string
	QuickModel      string
	DeepModel       string
	Depth           int
	DepthSet        bool
	OpenAIKey       string
	AlphaVantageKey string
	DiscordWebhook  string
	Notify          bool
	NotifySet       bool
}

// buildRequest merges explicit input, saved form values and the credentials
// the backend has on file. Explicit input always wins.
func buildRequest(in formInput, saved prefs.FormState, creds *models.APIConfig, providers []models.Provider, now time.Time) models.AnalysisRequest {
	req := models.AnalysisRequest{
		Ticker:          firstNonEmpty(in.Ticker, saved.Ticker),
		Date:            firstNonEmpty(in.Date, saved.Date, now.Format(dateLayout)),
		LLMProvider:     firstNonEmpty(in.Provider, saved.Provider),
		QuickThinkModel: firstNonEmpty(in.QuickModel, saved.QuickModel),
		DeepThinkModel:  firstNonEmpty(in.DeepModel, saved.DeepModel),
		DiscordWebhook:  firstNonEmpty(in.DiscordWebhook, saved.DiscordWebhook),
	}
	req.OpenAIAPIKey = in.OpenAIKey
	req.AlphaVantageAPIKey = in.AlphaVantageKey

	req.ResearchDepth = saved.Depth
	if in.DepthSet {
		req.ResearchDepth = in.Depth
	}
	if req.ResearchDepth <= 0 {
		req.ResearchDepth = defaultDepth
	}

	req.DiscordNotify = saved.DiscordNotify
	if in.NotifySet {
		req.DiscordNotify = in.Notify
	}

	analysts := in.Analysts
	if len(analysts) == 0 {
		analysts = saved.Analysts
	}
	for _, a := range analysts {
		for _, part := range strings.Split(a, ",") {
			req.Analysts = append(req.Analysts, models.AnalystType(part))
		}
	}

	req.ProviderURL = providerURL(req.LLMProvider, providers)
	if req.ProviderURL == "" && strings.EqualFold(req.LLMProvider, saved.Provider) {
		req.ProviderURL = saved.ProviderURL
	}

	if creds != nil {
		req.OpenAIAPIKey = firstNonEmpty(req.OpenAIAPIKey, creds.OpenAIAPIKey)
		req.AlphaVantageAPIKey = firstNonEmpty(req.AlphaVantageAPIKey, creds.AlphaVantageAPIKey)
		req.DiscordWebhook = firstNonEmpty(req.DiscordWebhook, creds.DiscordWebhook)
	}

	req.Normalize()
	return req
}

// formStateFrom snapshots the non-secret fields of req.
func formStateFrom(req models.AnalysisRequest) prefs.FormState {
	analysts := make([]string, 0, len(req.Analysts))
	for _, a := range req.Analysts {
		analysts = append(analysts, string(a))
	}
	return prefs.FormState{
		Ticker:         req.Ticker,
		Date:           req.Date,
		Provider:       req.LLMProvider,
		ProviderURL:    req.ProviderURL,
		QuickModel:     req.QuickThinkModel,
		DeepModel:      req.DeepThinkModel,
		Depth:          req.ResearchDepth,
		DiscordWebhook: req.DiscordWebhook,
		DiscordNotify:  req.DiscordNotify,
		Analysts:       analysts,
	}
}

func providerURL(name string, providers []models.Provider) string {
	for _, p := range providers {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p.URL
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
