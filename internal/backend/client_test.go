package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dyike/cortexctl/pkg/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestProvidersAndModels(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/api/providers":
			w.Write([]byte(`{"providers":[{"name":"OpenAI","url":"https://api.openai.com/v1"}]}`))
		case "/api/models/Open%20AI":
			w.Write([]byte(`{"quick":[{"value":"gpt-4o-mini","name":"GPT-4o-mini"}],"deep":[{"value":"o3","name":"o3"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	providers, err := client.Providers(context.Background())
	if err != nil {
		t.Fatalf("Providers: %v", err)
	}
	if len(providers) != 1 || providers[0].URL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected providers %+v", providers)
	}

	catalog, err := client.Models(context.Background(), "Open AI")
	if err != nil {
		t.Fatalf("Models: %v", err)
	}
	if catalog.Quick[0].Value != "gpt-4o-mini" || catalog.Deep[0].Value != "o3" {
		t.Fatalf("unexpected catalog %+v", catalog)
	}
}

func TestAnalyzeSendsRequestBody(t *testing.T) {
	var got models.AnalysisRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/analyze" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"success":true,"analysis_id":"job-1"}`))
	})

	acc, err := client.Analyze(context.Background(), models.AnalysisRequest{
		Ticker:          "AAPL",
		Date:            "2024-01-01",
		Analysts:        []models.AnalystType{models.MarketAnalyst},
		LLMProvider:     "p1",
		QuickThinkModel: "q1",
		DeepThinkModel:  "d1",
		ResearchDepth:   3,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !acc.Success || acc.AnalysisID != "job-1" {
		t.Fatalf("unexpected acceptance %+v", acc)
	}
	if got.Ticker != "AAPL" || got.ResearchDepth != 3 || got.QuickThinkModel != "q1" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestNonSuccessStatusIsTransportError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.AnalysisStatus(context.Background(), "job-1")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", te.StatusCode)
	}
	if te.Error() != "GET /api/analysis/job-1: HTTP 502: boom" {
		t.Fatalf("unexpected message %q", te.Error())
	}
}

func TestUnreachableBackendIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	_, err := client.Providers(context.Background())
	var te *TransportError
	if !errors.As(err, &te) || te.Err == nil {
		t.Fatalf("expected network TransportError, got %v", err)
	}
}

func TestSaveConfigAndConfig(t *testing.T) {
	var saved map[string]string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/save-config":
			json.NewDecoder(r.Body).Decode(&saved)
			w.Write([]byte(`{"success":true,"message":"saved"}`))
		case "/api/config":
			w.Write([]byte(`{"openai_api_key":"sk-test","discord_webhook":"https://discord.test/hook"}`))
		}
	})

	ack, err := client.SaveConfig(context.Background(), models.APIConfig{OpenAIAPIKey: "sk-test"})
	if err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if !ack.Success || ack.Message != "saved" {
		t.Fatalf("unexpected ack %+v", ack)
	}
	if _, ok := saved["alpha_vantage_api_key"]; !ok {
		t.Fatalf("expected all three keys to be sent, got %v", saved)
	}

	cfg, err := client.Config(context.Background())
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.OpenAIAPIKey != "sk-test" || cfg.AlphaVantageAPIKey != "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestMalformedBodyIsDecodeError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err := client.Health(context.Background())
	var te *TransportError
	if err == nil || errors.As(err, &te) {
		t.Fatalf("expected plain decode error, got %v", err)
	}
}
