package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MichalKokolus/chatbot-advisor/internal/provider"
)

func newTestProvider(baseURL string) *Provider {
	return &Provider{
		config: Config{
			BaseURL:   baseURL,
			APIKey:    "test-key",
			Model:     "test-model",
			MaxTokens: 1000,
			Timeout:   5 * time.Second,
		},
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 5 * time.Second,
			},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestConfigure(t *testing.T) {
	yamlData := `
base_url: "https://api.example.com/v1"
api_key: "sk-test-123"
model: "gpt-4o-mini"
max_tokens: 1024
headers:
  X-Custom: "value"
timeout: 60s
`
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(yamlData), &node); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}

	p := &Provider{}
	if err := p.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if p.config.BaseURL != "https://api.example.com/v1" {
		t.Errorf("BaseURL = %q", p.config.BaseURL)
	}
	if p.config.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", p.config.Model)
	}
	if p.config.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", p.config.MaxTokens)
	}
	if p.config.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", p.config.Timeout)
	}
	if v := p.config.Headers["X-Custom"]; v != "value" {
		t.Errorf("Headers[X-Custom] = %q", v)
	}
}

func TestConfigure_Defaults(t *testing.T) {
	yamlData := `
base_url: "https://api.example.com/v1"
api_key: "sk-test"
model: "gpt-4o-mini"
`
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(yamlData), &node); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}

	p := &Provider{}
	if err := p.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if p.config.Timeout != 30*time.Second {
		t.Errorf("default Timeout = %v, want 30s", p.config.Timeout)
	}
	if p.config.MaxTokens != 1000 {
		t.Errorf("default MaxTokens = %d, want 1000", p.config.MaxTokens)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		ok     bool
	}{
		{"valid", Config{BaseURL: "https://x", APIKey: "k", Model: "m"}, true},
		{"missing base_url", Config{APIKey: "k", Model: "m"}, false},
		{"missing api_key", Config{BaseURL: "https://x", Model: "m"}, false},
		{"missing model", Config{BaseURL: "https://x", APIKey: "k"}, false},
		{"bad scheme", Config{BaseURL: "ftp://x", APIKey: "k", Model: "m"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if tt.ok && err != nil {
				t.Errorf("validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_APIKeyEnv(t *testing.T) {
	t.Setenv("OAI_TEST_KEY", "from-env")

	cfg := Config{APIKeyEnv: "OAI_TEST_KEY"}
	cfg.defaults()

	if cfg.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "from-env")
	}
}

func TestComplete(t *testing.T) {
	var gotReq oaiRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeJSON(w, oaiResponse{
			Choices: []oaiChoice{{
				Message:      oaiMessage{Role: "assistant", Content: "Tell me more."},
				FinishReason: "stop",
			}},
			Usage: oaiUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	temp := 0.7
	resp, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleSystem, Content: "persona"},
			{Role: provider.MessageRoleUser, Content: "hello"},
		},
		MaxTokens:   256,
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != "Tell me more." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != provider.FinishReasonStop {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("Model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("Messages = %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", gotReq.MaxTokens)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", gotReq.Temperature)
	}
}

func TestComplete_MaxTokensFallback(t *testing.T) {
	var gotReq oaiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		writeJSON(w, oaiResponse{Choices: []oaiChoice{{Message: oaiMessage{Content: "ok"}}}})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	_, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotReq.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d, want config fallback 1000", gotReq.MaxTokens)
	}
}

func TestComplete_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, provider.ErrRateLimit},
		{"server error", http.StatusBadGateway, provider.ErrProviderDown},
		{"unauthorized", http.StatusUnauthorized, provider.ErrAuthentication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			p := newTestProvider(srv.URL)
			_, err := p.Complete(context.Background(), provider.CompletionRequest{
				Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "hi"}},
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(w, map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := []struct {
		in   string
		want provider.FinishReason
	}{
		{"stop", provider.FinishReasonStop},
		{"length", provider.FinishReasonLength},
		{"content_filter", provider.FinishReasonFiltering},
		{"weird_reason", provider.FinishReason("weird_reason")},
	}
	for _, tt := range tests {
		if got := mapFinishReason(tt.in); got != tt.want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
