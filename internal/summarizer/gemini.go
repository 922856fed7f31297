package summarizer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"aipulse/internal/article"
	"aipulse/internal/config"
	"aipulse/internal/logger"
)

// promptMaxChars caps the description passed into the prompt.
const promptMaxChars = 4000

// Gemini summarizes via the Gemini API with a per-run request budget.
type Gemini struct {
	client      *genai.Client
	model       string
	maxRequests int
	requests    int
}

var _ Summarizer = (*Gemini)(nil)

func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       cfg.Model,
		maxRequests: cfg.MaxRequests,
	}, nil
}

func (g *Gemini) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// Summarize asks the model for a two-sentence summary. Once the per-run
// budget is spent it returns an error so the caller falls back.
func (g *Gemini) Summarize(ctx context.Context, a article.Article) (string, error) {
	if g.maxRequests > 0 && g.requests >= g.maxRequests {
		return "", fmt.Errorf("request budget of %d exhausted", g.maxRequests)
	}
	g.requests++

	model := g.client.GenerativeModel(g.model)
	prompt := buildPrompt(a)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	summary := extractText(resp)
	if summary == "" {
		return "", fmt.Errorf("empty response for %s", a.URL)
	}
	logger.Debug("gemini: summarized", "url", a.URL, "requests", g.requests)
	return summary, nil
}

func buildPrompt(a article.Article) string {
	desc := strings.Join(strings.Fields(a.Description), " ")
	if utf8.RuneCountInString(desc) > promptMaxChars {
		runes := []rune(desc)
		desc = string(runes[:promptMaxChars])
	}
	return fmt.Sprintf(`Summarize this AI news item in at most two sentences for a daily digest.
Keep product and organization names as-is. No preamble, output only the summary.

Title: %s
Source: %s
Content: %s`, a.Title, a.Source, desc)
}

func extractText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
