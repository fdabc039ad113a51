package stub

import (
	"strings"

	"github.com/dyike/cortexctl/pkg/models"
)

// Providers mirrors the provider list of the analysis backend.
var Providers = []models.Provider{
	{Name: "OpenAI", URL: "https://api.openai.com/v1"},
	{Name: "Anthropic", URL: "https://api.anthropic.com/"},
	{Name: "Google", URL: "https://generativelanguage.googleapis.com/v1"},
	{Name: "Openrouter", URL: "https://openrouter.ai/api/v1"},
	{Name: "Ollama", URL: "http://localhost:11434/v1"},
}

var catalog = map[string]models.ModelCatalog{
	"openai": {
		Quick: []models.ModelOption{
			{Name: "GPT-4o-mini", Value: "gpt-4o-mini"},
			{Name: "GPT-4.1-nano", Value: "gpt-4.1-nano"},
			{Name: "GPT-4.1-mini", Value: "gpt-4.1-mini"},
			{Name: "GPT-4o", Value: "gpt-4o"},
			{Name: "GPT-5-mini", Value: "gpt-5-mini"},
			{Name: "GPT-5", Value: "gpt-5"},
		},
		Deep: []models.ModelOption{
			{Name: "GPT-4.1-nano", Value: "gpt-4.1-nano"},
			{Name: "GPT-4.1-mini", Value: "gpt-4.1-mini"},
			{Name: "GPT-4o", Value: "gpt-4o"},
			{Name: "GPT-5-mini", Value: "gpt-5-mini"},
			{Name: "GPT-5", Value: "gpt-5"},
			{Name: "GPT-5-turbo", Value: "gpt-5-turbo"},
			{Name: "o4-mini", Value: "o4-mini"},
			{Name: "o3-mini", Value: "o3-mini"},
			{Name: "o3", Value: "o3"},
			{Name: "o1", Value: "o1"},
		},
	},
	"anthropic": {
		Quick: []models.ModelOption{
			{Name: "Claude Haiku 3.5", Value: "claude-3-5-haiku-latest"},
			{Name: "Claude Sonnet 3.5", Value: "claude-3-5-sonnet-latest"},
			{Name: "Claude Sonnet 3.7", Value: "claude-3-7-sonnet-latest"},
			{Name: "Claude Sonnet 4", Value: "claude-sonnet-4-0"},
		},
		Deep: []models.ModelOption{
			{Name: "Claude Haiku 3.5", Value: "claude-3-5-haiku-latest"},
			{Name: "Claude Sonnet 3.5", Value: "claude-3-5-sonnet-latest"},
			{Name: "Claude Sonnet 3.7", Value: "claude-3-7-sonnet-latest"},
			{Name: "Claude Sonnet 4", Value: "claude-sonnet-4-0"},
			{Name: "Claude Opus 4", Value: "claude-opus-4-0"},
		},
	},
	"google": {
		Quick: []models.ModelOption{
			{Name: "Gemini 2.0 Flash-Lite", Value: "gemini-2.0-flash-lite"},
			{Name: "Gemini 2.0 Flash", Value: "gemini-2.0-flash"},
			{Name: "Gemini 2.5 Flash", Value: "gemini-2.5-flash-preview-05-20"},
		},
		Deep: []models.ModelOption{
			{Name: "Gemini 2.0 Flash-Lite", Value: "gemini-2.0-flash-lite"},
			{Name: "Gemini 2.0 Flash", Value: "gemini-2.0-flash"},
			{Name: "Gemini 2.5 Flash", Value: "gemini-2.5-flash-preview-05-20"},
			{Name: "Gemini 2.5 Pro", Value: "gemini-2.5-pro-preview-06-05"},
		},
	},
}

// ModelsFor returns the catalogue for provider (case-insensitive). Unknown
// providers get empty lists, never nil.
func ModelsFor(provider string) models.ModelCatalog {
	if c, ok := catalog[strings.ToLower(provider)]; ok {
		return c
	}
	return models.ModelCatalog{Quick: []models.ModelOption{}, Deep: []models.ModelOption{}}
}
