package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MichalKokolus/chatbot-advisor/internal/provider"
)

// Gemini generateContent wire types.

type genRequest struct {
	SystemInstruction *genContent  `json:"systemInstruction,omitempty"`
	Contents          []genContent `json:"contents"`
	GenerationConfig  genConfig    `json:"generationConfig"`
}

type genContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []genPart `json:"parts"`
}

type genPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type genResponse struct {
	Candidates    []genCandidate `json:"candidates"`
	UsageMetadata genUsage       `json:"usageMetadata"`
}

type genCandidate struct {
	Content      genContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type genUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// buildRequest maps a provider.CompletionRequest to the Gemini wire format.
// Gemini has no system role in contents; the system prompt travels in
// systemInstruction, and the assistant role is called "model".
func buildRequest(configMaxTokens int, req provider.CompletionRequest) genRequest {
	out := genRequest{}

	for _, m := range req.Messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			out.SystemInstruction = &genContent{
				Parts: []genPart{{Text: m.Content}},
			}
		case provider.MessageRoleAssistant:
			out.Contents = append(out.Contents, genContent{
				Role:  "model",
				Parts: []genPart{{Text: m.Content}},
			})
		default:
			out.Contents = append(out.Contents, genContent{
				Role:  "user",
				Parts: []genPart{{Text: m.Content}},
			})
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = configMaxTokens
	}
	out.GenerationConfig = genConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: maxTokens,
	}
	return out
}

// parseResponse flattens the first candidate's parts into a single string.
func parseResponse(resp genResponse) provider.CompletionResponse {
	cr := provider.CompletionResponse{
		Usage: provider.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}
	if len(resp.Candidates) == 0 {
		return cr
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	cr.Content = sb.String()
	cr.FinishReason = mapFinishReason(cand.FinishReason)
	return cr
}

func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "STOP":
		return provider.FinishReasonStop
	case "MAX_TOKENS":
		return provider.FinishReasonLength
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(reason)
	}
}

// doRequest executes an HTTP POST against the generateContent endpoint.
func (p *Provider) doRequest(ctx context.Context, body genRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.config.BaseURL, p.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		// Caller cancellation is not a provider failure; misclassifying it
		// would put a healthy provider in cooldown.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	return resp, nil
}

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 4096

// handleErrorResponse maps HTTP error status codes to sentinel errors.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, body)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrProviderDown, resp.StatusCode, body)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrAuthentication, resp.StatusCode, body)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
}
