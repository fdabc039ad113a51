package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/cortexctl/pkg/models"
)

// TransportError is returned when the backend could not be reached or
// answered with a non-success HTTP status.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the analysis backend HTTP API.
type Client struct {
	client  *resty.Client
	baseURL string
}

// NewClient creates a backend client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{client: client, baseURL: baseURL}
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthStatus is the reply of GET /api/health.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Providers lists the LLM providers the backend can route to.
func (c *Client) Providers(ctx context.Context) ([]models.Provider, error) {
	var out struct {
		Providers []models.Provider `json:"providers"`
	}
	if err := c.get(ctx, "/api/providers", &out); err != nil {
		return nil, err
	}
	return out.Providers, nil
}

// Models returns the quick and deep model choices for provider.
func (c *Client) Models(ctx context.Context, provider string) (*models.ModelCatalog, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	var out models.ModelCatalog
	if err := c.get(ctx, "/api/models/"+url.PathEscape(provider), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Config returns the credentials stored by the backend, used to autofill
// the credential fields of a request.
func (c *Client) Config(ctx context.Context) (*models.APIConfig, error) {
	var out models.APIConfig
	if err := c.get(ctx, "/api/config", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveConfig stores credentials on the backend.
func (c *Client) SaveConfig(ctx context.Context, cfg models.APIConfig) (*models.Ack, error) {
	body := map[string]string{
		"openai_api_key":        cfg.OpenAIAPIKey,
		"alpha_vantage_api_key": cfg.AlphaVantageAPIKey,
		"discord_webhook":       cfg.DiscordWebhook,
	}
	var out models.Ack
	if err := c.post(ctx, "/api/save-config", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze submits a job. A logical rejection comes back as
// Acceptance.Success == false, not as an error.
func (c *Client) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.Acceptance, error) {
	var out models.Acceptance
	if err := c.post(ctx, "/api/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalysisStatus reads the current status of job id once.
func (c *Client) AnalysisStatus(ctx context.Context, id string) (*models.StatusResponse, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("analysis id is required")
	}
	var out models.StatusResponse
	if err := c.get(ctx, "/api/analysis/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.get(ctx, "/api/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(path)
	return decode(resp, err, "GET", path, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	return decode(resp, err, "POST", path, out)
}

func decode(resp *resty.Response, err error, method, path string, out any) error {
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	if resp.IsError() {
		return &TransportError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}
