package filter

import (
	"fmt"
	"testing"
	"time"

	"aipulse/internal/article"
	"aipulse/internal/config"
)

func temporalConfig() config.TemporalConfig {
	return config.Default().Temporal
}

func makePool(now time.Time, recent, historical int) []article.Article {
	var pool []article.Article
	for i := 0; i < recent; i++ {
		pool = append(pool, article.Article{
			URL:         fmt.Sprintf("https://example.com/recent/%d", i),
			Title:       fmt.Sprintf("Recent story %d", i),
			Score:       0.9 - float64(i)*0.01,
			PublishedAt: daysAgo(now, i+1),
		})
	}
	for i := 0; i < historical; i++ {
		pool = append(pool, article.Article{
			URL:         fmt.Sprintf("https://example.com/historical/%d", i),
			Title:       fmt.Sprintf("Historical story %d", i),
			Score:       0.8 - float64(i)*0.01,
			PublishedAt: daysAgo(now, 400+i),
		})
	}
	return pool
}

func countGroup(articles []article.Article, g article.TimeGroup) int {
	n := 0
	for _, a := range articles {
		if a.TimeGroup == g {
			n++
		}
	}
	return n
}

func TestClassifyThreshold(t *testing.T) {
	t.Parallel()
	b := NewTemporalBalancer(temporalConfig())
	now := time.Now()

	pool := []article.Article{
		{URL: "https://example.com/fresh", PublishedAt: daysAgo(now, 10)},
		{URL: "https://example.com/stale", PublishedAt: daysAgo(now, 400)},
		{URL: "https://example.com/undated"},
	}
	got := b.Classify(pool, now)
	if got[0].TimeGroup != article.TimeGroupRecent {
		t.Errorf("10-day-old article should be recent")
	}
	if got[1].TimeGroup != article.TimeGroupHistorical {
		t.Errorf("400-day-old article should be historical")
	}
	if got[2].TimeGroup != article.TimeGroupHistorical {
		t.Errorf("undated article should be historical")
	}
}

func TestSelectTargetRatio(t *testing.T) {
	t.Parallel()
	b := NewTemporalBalancer(temporalConfig())
	now := time.Now()

	got := b.Select(makePool(now, 15, 15), now)
	if len(got) != 10 {
		t.Fatalf("got %d selected, want 10", len(got))
	}
	if n := countGroup(got, article.TimeGroupRecent); n != 8 {
		t.Errorf("got %d recent, want 8 at the target ratio", n)
	}
	assertUniqueURLs(t, got)
}

func TestSelectMinimumRatioFallback(t *testing.T) {
	t.Parallel()
	b := NewTemporalBalancer(temporalConfig())
	now := time.Now()

	// 7 recent clears the 70% floor but not the 80% target
	got := b.Select(makePool(now, 7, 15), now)
	if len(got) != 10 {
		t.Fatalf("got %d selected, want 10", len(got))
	}
	if n := countGroup(got, article.TimeGroupRecent); n != 7 {
		t.Errorf("got %d recent, want all 7", n)
	}
}

func TestSelectMinimumRatioBoundsRecentShare(t *testing.T) {
	t.Parallel()
	cfg := temporalConfig()
	cfg.DailyTargetCount = 20
	b := NewTemporalBalancer(cfg)
	now := time.Now()

	// 15 recent misses the 80% target (16) but clears the 70% floor (14);
	// the floor bounds the recent take so historical keeps its slice
	got := b.Select(makePool(now, 15, 10), now)
	if len(got) != 20 {
		t.Fatalf("got %d selected, want 20", len(got))
	}
	if n := countGroup(got, article.TimeGroupRecent); n != 14 {
		t.Errorf("got %d recent, want the floor of 14", n)
	}
	if n := countGroup(got, article.TimeGroupHistorical); n != 6 {
		t.Errorf("got %d historical, want 6", n)
	}
}

func TestSelectScarceRecentPool(t *testing.T) {
	t.Parallel()
	b := NewTemporalBalancer(temporalConfig())
	now := time.Now()

	// 2 recent + 20 historical: both ratio tiers fail, output still fills
	got := b.Select(makePool(now, 2, 20), now)
	if len(got) != 10 {
		t.Fatalf("got %d selected, want 10", len(got))
	}
	if n := countGroup(got, article.TimeGroupRecent); n != 2 {
		t.Errorf("got %d recent, want both recent articles included", n)
	}
	if n := countGroup(got, article.TimeGroupHistorical); n != 8 {
		t.Errorf("got %d historical, want 8", n)
	}
}

func TestSelectSmallPool(t *testing.T) {
	t.Parallel()
	b := NewTemporalBalancer(temporalConfig())
	now := time.Now()

	got := b.Select(makePool(now, 2, 3), now)
	if len(got) != 5 {
		t.Fatalf("got %d selected, want all 5 when the pool is short", len(got))
	}
}

func TestSelectFillsFromRecentWhenHistoricalRunsDry(t *testing.T) {
	t.Parallel()
	b := NewTemporalBalancer(temporalConfig())
	now := time.Now()

	got := b.Select(makePool(now, 12, 0), now)
	if len(got) != 10 {
		t.Fatalf("got %d selected, want 10 filled entirely from recent", len(got))
	}
	if n := countGroup(got, article.TimeGroupRecent); n != 10 {
		t.Errorf("got %d recent, want 10", n)
	}
}
