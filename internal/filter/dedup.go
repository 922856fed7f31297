// Package filter holds the selection pipeline stages: deduplication,
// scoring, temporal balancing, category allocation, and overflow detection.
package filter

import (
	"net/url"
	"strings"

	"aipulse/internal/article"
	"aipulse/internal/config"
	"aipulse/internal/logger"
	"aipulse/internal/metrics"
)

// History is the persistence view the deduplicator needs.
type History interface {
	Exists(urlHash string) (bool, error)
	ExistsByContent(contentHash string) (bool, error)
	GetRecent(days, limit int) ([]article.Article, error)
}

// mirrorDomains lists known re-hosting domains. An item hosted on one is a
// cross-post of the canonical domain and is rejected outright, regardless of
// the hash method.
var mirrorDomains = map[string]bool{
	"arxiv-sanity.com":       true,
	"www.arxiv-sanity.com":   true,
	"arxiv-vanity.com":       true,
	"www.arxiv-vanity.com":   true,
	"paperswithcode.com":     true,
	"www.paperswithcode.com": true,
}

// Deduplicator removes duplicates within a batch and against history. It
// keeps per-run seen-sets; Reset clears them between runs.
type Deduplicator struct {
	cfg     config.DedupConfig
	history History

	seenURL     map[string]bool
	seenContent map[string]bool
	seenTitles  []string
}

func NewDeduplicator(cfg config.DedupConfig, history History) *Deduplicator {
	d := &Deduplicator{cfg: cfg, history: history}
	d.Reset()
	return d
}

// Reset clears all per-run state. Call it at the start of every pipeline run.
func (d *Deduplicator) Reset() {
	d.seenURL = make(map[string]bool)
	d.seenContent = make(map[string]bool)
	d.seenTitles = nil
}

// Filter returns the articles that are not duplicates, preserving input
// order. A failing history lookup keeps the article: losing a story is worse
// than repeating one.
func (d *Deduplicator) Filter(articles []article.Article) []article.Article {
	if !d.cfg.Enabled {
		return articles
	}

	var recentTitles []string
	if d.usesSimilarity() && d.history != nil {
		recent, err := d.history.GetRecent(d.cfg.RecentWindowDays, d.cfg.RecentSampleLimit)
		if err != nil {
			logger.Warn("dedup: recent history unavailable, similarity limited to batch", "error", err)
		} else {
			for _, a := range recent {
				recentTitles = append(recentTitles, a.Title)
			}
		}
	}

	var kept []article.Article
	for _, a := range articles {
		if d.isDuplicate(a, recentTitles) {
			metrics.DuplicatesFiltered.Inc()
			continue
		}
		d.remember(a)
		kept = append(kept, a)
	}
	return kept
}

func (d *Deduplicator) usesSimilarity() bool {
	return d.cfg.Method == "similarity" || d.cfg.Method == "all"
}

func (d *Deduplicator) usesURLHash() bool {
	switch d.cfg.Method {
	case "url_hash", "both", "all":
		return true
	}
	return false
}

func (d *Deduplicator) usesContentHash() bool {
	switch d.cfg.Method {
	case "content_hash", "both", "all":
		return true
	}
	return false
}

func (d *Deduplicator) isDuplicate(a article.Article, recentTitles []string) bool {
	if isMirrorURL(a.URL) {
		return true
	}

	urlKey := canonicalURLKey(a.URL)

	if d.usesURLHash() {
		if d.seenURL[urlKey] {
			return true
		}
		if d.existsInHistory(article.URLHash(a.URL), (History).Exists) {
			return true
		}
	}

	if d.usesContentHash() {
		contentKey := article.ContentHash(a.Title, a.Description)
		if d.seenContent[contentKey] {
			return true
		}
		if d.existsInHistory(contentKey, (History).ExistsByContent) {
			return true
		}
	}

	if d.usesSimilarity() {
		for _, title := range d.seenTitles {
			if SimilarityRatio(a.Title, title) >= d.cfg.SimilarityThreshold {
				return true
			}
		}
		for _, title := range recentTitles {
			if SimilarityRatio(a.Title, title) >= d.cfg.SimilarityThreshold {
				return true
			}
		}
	}

	return false
}

func (d *Deduplicator) existsInHistory(key string, lookup func(History, string) (bool, error)) bool {
	if d.history == nil {
		return false
	}
	exists, err := lookup(d.history, key)
	if err != nil {
		logger.Warn("dedup: history lookup failed, keeping article", "error", err)
		return false
	}
	return exists
}

func (d *Deduplicator) remember(a article.Article) {
	d.seenURL[canonicalURLKey(a.URL)] = true
	d.seenContent[article.ContentHash(a.Title, a.Description)] = true
	if d.usesSimilarity() {
		d.seenTitles = append(d.seenTitles, a.Title)
	}
}

// canonicalURLKey normalizes a URL for in-batch comparison: lowercased host,
// trailing slash dropped.
func canonicalURLKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	return strings.ToLower(u.Host) + strings.TrimSuffix(u.Path, "/")
}

// isMirrorURL reports whether the URL lives on a known mirror domain.
func isMirrorURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return mirrorDomains[strings.ToLower(u.Host)]
}
