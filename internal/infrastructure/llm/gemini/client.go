// Package gemini implements the contract analyzer on top of the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/clauselens/clauselens/internal/core/domain"
)

type Config struct {
	APIKey         string
	Model          string
	Temperature    float32
	MaxPromptChars int
}

type Analyzer struct {
	client         *genai.Client
	model          *genai.GenerativeModel
	maxPromptChars int
}

func New(ctx context.Context, cfg Config) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)

	maxPromptChars := cfg.MaxPromptChars
	if maxPromptChars <= 0 {
		maxPromptChars = defaultMaxPromptChars
	}

	return &Analyzer{
		client:         client,
		model:          model,
		maxPromptChars: maxPromptChars,
	}, nil
}

func (a *Analyzer) Close() error {
	return a.client.Close()
}

// Analyze submits the extracted text in a single request. No retry: a failed
// attempt finalizes the record and the caller decides whether to re-upload.
func (a *Analyzer) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	prompt := buildAnalysisPrompt(text, a.maxPromptChars)

	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("gemini generate: %w", err)
	}

	return decodeAnalysis(collectText(resp))
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
