package cli

import (
	"reflect"
	"testing"
	"time"

	"github.com/dyike/cortexctl/internal/prefs"
	"github.com/dyike/cortexctl/pkg/models"
)

var testProviders = []models.Provider{
	{Name: "OpenAI", URL: "https://api.openai.com/v1"},
	{Name: "Ollama", URL: "http://localhost:11434/v1"},
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
}

func TestBuildRequestExplicitInputWins(t *testing.T) {
	saved := prefs.FormState{
		Ticker:     "MSFT",
		Date:       "2023-12-01",
		Provider:   "Ollama",
		QuickModel: "llama3.1",
		DeepModel:  "qwen3",
		Depth:      5,
		Analysts:   []string{"news"},
	}
	in := formInput{
		Ticker:     " aapl ",
		Date:       "2024-01-02",
		Provider:   "openai",
		QuickModel: "gpt-4o-mini",
		DeepModel:  "o3",
		Depth:      3,
		DepthSet:   true,
		Analysts:   []string{"market,Social", "news"},
	}

	req := buildRequest(in, saved, nil, testProviders, fixedNow())

	if req.Ticker != "AAPL" {
		t.Fatalf("ticker = %q, want AAPL", req.Ticker)
	}
	if req.Date != "2024-01-02" {
		t.Fatalf("date = %q", req.Date)
	}
	if req.LLMProvider != "openai" || req.ProviderURL != "https://api.openai.com/v1" {
		t.Fatalf("provider = %q url = %q", req.LLMProvider, req.ProviderURL)
	}
	if req.QuickThinkModel != "gpt-4o-mini" || req.DeepThinkModel != "o3" {
		t.Fatalf("models = %q / %q", req.QuickThinkModel, req.DeepThinkModel)
	}
	if req.ResearchDepth != 3 {
		t.Fatalf("depth = %d, want 3", req.ResearchDepth)
	}
	want := []models.AnalystType{models.MarketAnalyst, models.SocialAnalyst, models.NewsAnalyst}
	if !reflect.DeepEqual(req.Analysts, want) {
		t.Fatalf("analysts = %v, want %v", req.Analysts, want)
	}
}

func TestBuildRequestFallsBackToSavedState(t *testing.T) {
	saved := prefs.FormState{
		Ticker:        "NVDA",
		Date:          "2024-02-01",
		Provider:      "Ollama",
		ProviderURL:   "http://custom:11434/v1",
		QuickModel:    "llama3.1",
		DeepModel:     "qwen3",
		Depth:         5,
		DiscordNotify: true,
		Analysts:      []string{"fundamentals"},
	}

	req := buildRequest(formInput{}, saved, nil, nil, fixedNow())

	if req.Ticker != "NVDA" || req.Date != "2024-02-01" {
		t.Fatalf("ticker/date = %q/%q", req.Ticker, req.Date)
	}
	if req.ProviderURL != "http://custom:11434/v1" {
		t.Fatalf("provider url = %q, want saved url", req.ProviderURL)
	}
	if req.ResearchDepth != 5 {
		t.Fatalf("depth = %d, want 5", req.ResearchDepth)
	}
	if !req.DiscordNotify {
		t.Fatal("notify should come from saved state")
	}
	if len(req.MissingFields()) != 0 {
		t.Fatalf("missing = %v", req.MissingFields())
	}
}

func TestBuildRequestDefaults(t *testing.T) {
	req := buildRequest(formInput{Ticker: "tsla"}, prefs.FormState{}, nil, testProviders, fixedNow())

	if req.Date != "2024-03-15" {
		t.Fatalf("date = %q, want today", req.Date)
	}
	if req.ResearchDepth != defaultDepth {
		t.Fatalf("depth = %d, want %d", req.ResearchDepth, defaultDepth)
	}
	want := []string{"provider", "quick model", "deep model", "analysts"}
	if got := req.MissingFields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("missing = %v, want %v", got, want)
	}
}

func TestBuildRequestNotifyFlag(t *testing.T) {
	saved := prefs.FormState{DiscordNotify: true}
	req := buildRequest(formInput{Notify: false, NotifySet: true}, saved, nil, nil, fixedNow())
	if req.DiscordNotify {
		t.Fatal("explicit --notify=false should override saved state")
	}
}

func TestBuildRequestCredentials(t *testing.T) {
	creds := &models.APIConfig{
		OpenAIAPIKey:       "sk-stored",
		AlphaVantageAPIKey: "av-stored",
		DiscordWebhook:     "https://discord.example/hook",
	}

	req := buildRequest(formInput{OpenAIKey: "sk-flag"}, prefs.FormState{}, creds, nil, fixedNow())

	if req.OpenAIAPIKey != "sk-flag" {
		t.Fatalf("openai key = %q, want flag value", req.OpenAIAPIKey)
	}
	if req.AlphaVantageAPIKey != "av-stored" {
		t.Fatalf("alpha vantage key = %q, want stored value", req.AlphaVantageAPIKey)
	}
	if req.DiscordWebhook != "https://discord.example/hook" {
		t.Fatalf("webhook = %q", req.DiscordWebhook)
	}
}

func TestFormStateFromOmitsSecrets(t *testing.T) {
	req := models.AnalysisRequest{
		Ticker:             "AAPL",
		Date:               "2024-01-02",
		Analysts:           []models.AnalystType{models.MarketAnalyst, models.NewsAnalyst},
		LLMProvider:        "OpenAI",
		ProviderURL:        "https://api.openai.com/v1",
		QuickThinkModel:    "gpt-4o-mini",
		DeepThinkModel:     "o3",
		ResearchDepth:      3,
		OpenAIAPIKey:       "sk-secret",
		AlphaVantageAPIKey: "av-secret",
	}

	state := formStateFrom(req)

	want := prefs.FormState{
		Ticker:      "AAPL",
		Date:        "2024-01-02",
		Provider:    "OpenAI",
		ProviderURL: "https://api.openai.com/v1",
		QuickModel:  "gpt-4o-mini",
		DeepModel:   "o3",
		Depth:       3,
		Analysts:    []string{"market", "news"},
	}
	if !reflect.DeepEqual(state, want) {
		t.Fatalf("state = %+v\nwant %+v", state, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "b", "c"); got != "b" {
		t.Fatalf("firstNonEmpty = %q, want b", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Fatalf("firstNonEmpty() = %q", got)
	}
}
