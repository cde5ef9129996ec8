package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/taskplanner/internal/version"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicVersion    = "2023-06-01"
	anthropicMaxTokens  = 1024
	maxResponseBodySize = 4 << 20
)

// AnthropicProvider implements Client for the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(cfg ProviderConfig, httpClient *http.Client) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: api_key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &AnthropicProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  httpClient,
	}, nil
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.model }

// Complete implements Client.
func (p *AnthropicProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	// Anthropic requires max_tokens.
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		System:      req.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("User-Agent", version.GetInfo().UserAgent())

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, Classify(p.Name(), err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBodySize))
	if err != nil {
		return nil, Classify(p.Name(), fmt.Errorf("read response: %w", err))
	}

	var parsed anthropicResponse
	decodeErr := json.Unmarshal(respBody, &parsed)

	if httpResp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, statusFailure(p.Name(), httpResp.StatusCode, msg, nil)
	}

	if decodeErr != nil {
		return nil, &Failure{Kind: KindMalformed, Provider: p.Name(), Message: "undecodable response body", Cause: decodeErr}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Response{
		Content:      text.String(),
		Model:        parsed.Model,
		FinishReason: parsed.StopReason,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}
