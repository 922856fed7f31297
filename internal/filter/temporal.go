package filter

import (
	"math"
	"sort"
	"time"

	"aipulse/internal/article"
	"aipulse/internal/config"
	"aipulse/internal/logger"
)

// TemporalBalancer splits candidates into recent and historical groups and
// selects a daily batch that keeps the recent share near the target ratio.
type TemporalBalancer struct {
	cfg config.TemporalConfig
}

func NewTemporalBalancer(cfg config.TemporalConfig) *TemporalBalancer {
	return &TemporalBalancer{cfg: cfg}
}

// cutoff is the end of the day recentThresholdDays+1 days ago; anything
// published after it counts as recent.
func (b *TemporalBalancer) cutoff(now time.Time) time.Time {
	day := now.AddDate(0, 0, -(b.cfg.RecentThresholdDays + 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, day.Location())
}

// Classify annotates every article with its time group. Articles without a
// timestamp are historical.
func (b *TemporalBalancer) Classify(articles []article.Article, now time.Time) []article.Article {
	cutoff := b.cutoff(now)
	out := make([]article.Article, len(articles))
	for i, a := range articles {
		if a.PublishedAt != nil && a.PublishedAt.After(cutoff) {
			a.TimeGroup = article.TimeGroupRecent
		} else {
			a.TimeGroup = article.TimeGroupHistorical
		}
		out[i] = a
	}
	return out
}

// Select picks up to DailyTargetCount articles. It tries the target recent
// ratio first, falls back to the minimum ratio, and finally takes whatever
// recent articles exist topped up with historical ones.
func (b *TemporalBalancer) Select(articles []article.Article, now time.Time) []article.Article {
	classified := b.Classify(articles, now)

	var recent, historical []article.Article
	for _, a := range classified {
		if a.TimeGroup == article.TimeGroupRecent {
			recent = append(recent, a)
		} else {
			historical = append(historical, a)
		}
	}
	sortByScoreRecency(recent)
	sortByScoreRecency(historical)

	n := b.cfg.DailyTargetCount
	targetRecent := int(math.Round(float64(n) * b.cfg.TargetRecentRatio))
	minRecent := int(float64(n) * b.cfg.MinRecentRatio)

	var takeRecent int
	switch {
	case len(recent) >= targetRecent:
		takeRecent = targetRecent
	case len(recent) >= minRecent:
		// hold the recent share at the floor so historical keeps its slice
		takeRecent = minRecent
	default:
		takeRecent = len(recent)
		logger.Warn("temporal: recent pool below minimum ratio",
			"recent", len(recent), "minimum", minRecent)
	}

	selected := append([]article.Article{}, recent[:takeRecent]...)
	need := n - len(selected)
	if need > len(historical) {
		need = len(historical)
	}
	selected = append(selected, historical[:need]...)

	// top back up with leftover recent when historical ran dry
	if len(selected) < n && takeRecent < len(recent) {
		extra := n - len(selected)
		if extra > len(recent)-takeRecent {
			extra = len(recent) - takeRecent
		}
		selected = append(selected, recent[takeRecent:takeRecent+extra]...)
	}

	return selected
}

func sortByScoreRecency(articles []article.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].Score != articles[j].Score {
			return articles[i].Score > articles[j].Score
		}
		return publishedAfter(articles[i].PublishedAt, articles[j].PublishedAt)
	})
}
