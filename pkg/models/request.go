package models

import "strings"

// AnalystType identifies a member of the analyst team.
type AnalystType string

const (
	MarketAnalyst       AnalystType = "market"
	SocialAnalyst       AnalystType = "social"
	NewsAnalyst         AnalystType = "news"
	FundamentalsAnalyst AnalystType = "fundamentals"
)

// AllAnalysts lists the analyst team in display order.
var AllAnalysts = []AnalystType{MarketAnalyst, SocialAnalyst, NewsAnalyst, FundamentalsAnalyst}

// DisplayName returns a user-friendly name for the analyst type
func (a AnalystType) DisplayName() string {
	switch a {
	case MarketAnalyst:
		return "Market Analyst"
	case SocialAnalyst:
		return "Social Media Analyst"
	case NewsAnalyst:
		return "News Analyst"
	case FundamentalsAnalyst:
		return "Fundamentals Analyst"
	default:
		return string(a)
	}
}

// AnalysisRequest is the body of POST /api/analyze. It is built fresh for
// every submission.
type AnalysisRequest struct {
	Ticker          string        `json:"ticker"`
	Date            string        `json:"date"`
	Analysts        []AnalystType `json:"analysts"`
	LLMProvider     string        `json:"llm_provider"`
	ProviderURL     string        `json:"provider_url"`
	DeepThinkModel  string        `json:"deep_think_model"`
	QuickThinkModel string        `json:"quick_think_model"`
	ResearchDepth   int           `json:"research_depth"`

	OpenAIAPIKey       string `json:"openai_api_key,omitempty"`
	AlphaVantageAPIKey string `json:"alpha_vantage_api_key,omitempty"`
	DiscordWebhook     string `json:"discord_webhook,omitempty"`
	DiscordNotify      bool   `json:"discord_notify,omitempty"`
}

// Normalize trims every field and upper-cases the ticker.
func (r *AnalysisRequest) Normalize() {
	r.Ticker = strings.ToUpper(strings.TrimSpace(r.Ticker))
	r.Date = strings.TrimSpace(r.Date)
	r.LLMProvider = strings.TrimSpace(r.LLMProvider)
	r.ProviderURL = strings.TrimSpace(r.ProviderURL)
	r.DeepThinkModel = strings.TrimSpace(r.DeepThinkModel)
	r.QuickThinkModel = strings.TrimSpace(r.QuickThinkModel)
	r.OpenAIAPIKey = strings.TrimSpace(r.OpenAIAPIKey)
	r.AlphaVantageAPIKey = strings.TrimSpace(r.AlphaVantageAPIKey)
	r.DiscordWebhook = strings.TrimSpace(r.DiscordWebhook)

	analysts := make([]AnalystType, 0, len(r.Analysts))
	for _, a := range r.Analysts {
		if v := strings.TrimSpace(string(a)); v != "" {
			analysts = append(analysts, AnalystType(strings.ToLower(v)))
		}
	}
	r.Analysts = analysts
}

// MissingFields reports the required fields that are empty, in form order.
func (r AnalysisRequest) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.Ticker) == "" {
		missing = append(missing, "ticker")
	}
	if strings.TrimSpace(r.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(r.LLMProvider) == "" {
		missing = append(missing, "provider")
	}
	if strings.TrimSpace(r.QuickThinkModel) == "" {
		missing = append(missing, "quick model")
	}
	if strings.TrimSpace(r.DeepThinkModel) == "" {
		missing = append(missing, "deep model")
	}
	if len(r.Analysts) == 0 {
		missing = append(missing, "analysts")
	}
	return missing
}

// Provider is one entry of GET /api/providers.
type Provider struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ModelOption is a selectable model; Value is sent to the backend.
type ModelOption struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

// ModelCatalog is the response of GET /api/models/{provider}.
type ModelCatalog struct {
	Quick []ModelOption `json:"quick"`
	Deep  []ModelOption `json:"deep"`
}

// APIConfig carries the credentials the backend keeps on file.
type APIConfig struct {
	OpenAIAPIKey       string `json:"openai_api_key,omitempty"`
	AlphaVantageAPIKey string `json:"alpha_vantage_api_key,omitempty"`
	DiscordWebhook     string `json:"discord_webhook,omitempty"`
}

// Ack is the generic {success, message} reply.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
