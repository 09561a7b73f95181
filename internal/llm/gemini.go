package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/httpclient"
	"token-intel/internal/logger"
)

// Gemini defaults.
const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultTemperature   = 0.1
)

// GeminiConfig configures GeminiClient.
type GeminiConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// GeminiClient implements Generator over the Gemini generateContent endpoint.
type GeminiClient struct {
	cfg  GeminiConfig
	http *httpclient.Client
	log  *logrus.Entry
}

// NewGeminiClient creates a client. Zero config fields take defaults.
func NewGeminiClient(cfg GeminiConfig, hc *httpclient.Client, log *logrus.Entry) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if hc == nil {
		hc = httpclient.New("gemini")
	}
	return &GeminiClient{cfg: cfg, http: hc, log: logger.OrDiscard(log, "llm")}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		ResponseMimeType string  `json:"responseMimeType"`
		ResponseSchema   *Schema `json:"responseSchema,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// GenerateStructured asks the model for JSON conforming to schema.
func (c *GeminiClient) GenerateStructured(ctx context.Context, prompt string, schema *Schema, out interface{}) (Usage, error) {
	if c.cfg.APIKey == "" {
		return Usage{}, fmt.Errorf("%w: gemini api key is not configured", domain.ErrValidation)
	}

	var req geminiRequest
	req.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	req.GenerationConfig.Temperature = c.cfg.Temperature
	req.GenerationConfig.ResponseMimeType = "application/json"
	req.GenerationConfig.ResponseSchema = schema

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))

	var resp geminiResponse
	if err := c.http.PostJSON(ctx, endpoint, req, &resp); err != nil {
		return Usage{}, fmt.Errorf("gemini generate: %w", err)
	}

	usage := Usage{
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      resp.UsageMetadata.TotalTokenCount,
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return usage, fmt.Errorf("%w: gemini returned no candidates", domain.ErrUpstream)
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if err := json.Unmarshal([]byte(text.String()), out); err != nil {
		return usage, fmt.Errorf("%w: gemini output is not valid JSON: %v", domain.ErrFormat, err)
	}

	c.log.WithFields(logrus.Fields{
		"model":  c.cfg.Model,
		"tokens": usage.TotalTokens,
	}).Debug("structured generation complete")
	return usage, nil
}

var _ Generator = (*GeminiClient)(nil)
