// Package collector fetches candidate articles from the configured sources.
// Collectors return partial records; normalization and filtering happen
// downstream.
package collector

import (
	"context"

	"aipulse/internal/article"
)

// Collector is one article source.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]article.Article, error)
}
