package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements Client for the Gemini API through the genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider instance. Model names are
// normalised, so "gemini/gemini-1.5-flash" and "models/gemini-1.5-flash" both work.
func NewGeminiProvider(ctx context.Context, cfg ProviderConfig, httpClient *http.Client) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api_key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(cfg.BaseURL, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  NormalizeGeminiModel(cfg.Model),
	}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

// Complete implements Client.
func (p *GeminiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	temperature := float32(req.Temperature)
	gc := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, p.classify(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, malformed(p.Name(), "response contained no candidates")
	}

	out := &Response{
		Content: resp.Text(),
		Model:   p.model,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if fr := resp.Candidates[0].FinishReason; fr != "" {
		out.FinishReason = string(fr)
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func (p *GeminiProvider) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return statusFailure(p.Name(), apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code != 0 {
		return statusFailure(p.Name(), apiErrPtr.Code, apiErrPtr.Message, err)
	}
	return Classify(p.Name(), err)
}
