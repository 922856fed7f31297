// Package summarizer produces one-paragraph summaries for selected
// articles. The Gemini client is the real implementation; Mock serves tests
// and dry runs, and Fallback covers API failures.
package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"aipulse/internal/article"
)

// Summarizer turns an article into a short digest summary.
type Summarizer interface {
	Summarize(ctx context.Context, a article.Article) (string, error)
	Close()
}

// Fallback derives a summary without any model: the first sentence of the
// description, truncated to maxRunes.
func Fallback(a article.Article, maxRunes int) string {
	text := strings.Join(strings.Fields(a.Description), " ")
	if text == "" {
		text = a.Title
	}
	if idx := strings.Index(text, ". "); idx > 0 && idx < maxRunes {
		return text[:idx+1]
	}
	if utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		return string(runes[:maxRunes]) + "…"
	}
	return text
}

// Mock returns canned summaries; it never fails.
type Mock struct{}

var _ Summarizer = (*Mock)(nil)

func (Mock) Summarize(_ context.Context, a article.Article) (string, error) {
	return Fallback(a, 200), nil
}

func (Mock) Close() {}
