package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"aipulse/internal/article"
	"aipulse/internal/config"
	"aipulse/internal/logger"
)

// RSSCollector fetches the configured RSS feeds. One broken feed never
// aborts the run; its items are just missing.
type RSSCollector struct {
	feeds  []config.FeedConfig
	parser *gofeed.Parser
}

var _ Collector = (*RSSCollector)(nil)

func NewRSSCollector(feeds []config.FeedConfig) *RSSCollector {
	return &RSSCollector{
		feeds:  feeds,
		parser: gofeed.NewParser(),
	}
}

func (c *RSSCollector) Name() string { return "rss" }

// Collect downloads and parses every feed, tagging each item with its feed's
// source name and category.
func (c *RSSCollector) Collect(ctx context.Context) ([]article.Article, error) {
	var all []article.Article
	successCount := 0

	for _, feed := range c.feeds {
		parsed, err := c.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			logger.Warn("rss: feed failed", "feed", feed.Name, "error", err)
			continue
		}
		for _, item := range parsed.Items {
			all = append(all, itemToArticle(item, feed))
		}
		successCount++
		logger.Debug("rss: feed loaded", "feed", feed.Name, "items", len(parsed.Items))
	}

	logger.Info("rss: feeds processed", "ok", successCount, "total", len(c.feeds))
	if successCount == 0 && len(c.feeds) > 0 {
		return nil, fmt.Errorf("all %d feeds failed", len(c.feeds))
	}
	return all, nil
}

func itemToArticle(item *gofeed.Item, feed config.FeedConfig) article.Article {
	a := article.Article{
		URL:            strings.TrimSpace(item.Link),
		Title:          strings.TrimSpace(item.Title),
		Description:    strings.TrimSpace(item.Description),
		Source:         feed.Name,
		SourceCategory: feed.Category,
	}
	if a.Description == "" {
		a.Description = strings.TrimSpace(item.Content)
	}
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		a.PublishedAt = &t
	} else if item.Published != "" {
		a.PublishedAt = article.ParseTime(item.Published)
	}
	for _, cat := range item.Categories {
		a.Tags = append(a.Tags, strings.TrimSpace(cat))
	}
	return a
}
