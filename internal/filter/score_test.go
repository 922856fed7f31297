package filter

import (
	"strings"
	"testing"
	"time"

	"aipulse/internal/article"
	"aipulse/internal/config"
)

func testScoreFilter() *ScoreFilter {
	cfg := config.Default()
	return NewScoreFilter(cfg.Scoring, cfg.Content, cfg.Keywords)
}

func validArticle(now time.Time) article.Article {
	return article.Article{
		URL:         "https://openai.com/blog/new-model",
		Title:       "OpenAI ships a new flagship LLM",
		Description: strings.Repeat("A detailed description of the model release. ", 3),
		Source:      "openai_blog",
		PublishedAt: hoursAgo(now, 2),
	}
}

func TestScoreComponents(t *testing.T) {
	t.Parallel()
	f := testScoreFilter()
	now := time.Now()

	a := validArticle(now)
	score, topics := f.Score(a, now)

	// source 1.0*0.3 + keywords (llm -> 0.7)*0.3 + recency 1.0*0.2 + engagement 0*0.2
	want := 0.3 + 0.21 + 0.2
	if score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
	if len(topics) != 1 || topics[0] != "models" {
		t.Errorf("topics = %v, want [models]", topics)
	}
}

func TestScoreUnknownSourceIsNeutral(t *testing.T) {
	t.Parallel()
	f := testScoreFilter()
	now := time.Now()

	a := validArticle(now)
	a.Source = "some_new_feed"
	score, _ := f.Score(a, now)

	want := 0.5*0.3 + 0.21 + 0.2
	if score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestScoreMissingTimestampIsNeutral(t *testing.T) {
	t.Parallel()
	f := testScoreFilter()
	now := time.Now()

	a := validArticle(now)
	a.PublishedAt = nil
	score, _ := f.Score(a, now)

	want := 0.3 + 0.21 + 0.5*0.2
	if score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestRecencySteps(t *testing.T) {
	t.Parallel()
	now := time.Now()

	tests := []struct {
		hours float64
		want  float64
	}{
		{1, 1.0},
		{23, 1.0},
		{48, 0.7},
		{100, 0.4},
		{24 * 8, 0.2},
	}
	for _, tt := range tests {
		if got := recencyScore(hoursAgo(now, tt.hours), now); got != tt.want {
			t.Errorf("recencyScore(%vh ago) = %v, want %v", tt.hours, got, tt.want)
		}
	}
}

func TestEngagementScoreClamped(t *testing.T) {
	t.Parallel()

	a := article.Article{Stars: 5000, TodayStars: 500, Likes: 100, Downloads: 100000}
	if got := engagementScore(a); got != 1.0 {
		t.Errorf("engagement should clamp to 1.0, got %v", got)
	}
}

func TestFilterDropsExcludedKeyword(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Keywords.Excluded = []string{"sponsored"}
	f := NewScoreFilter(cfg.Scoring, cfg.Content, cfg.Keywords)
	now := time.Now()

	a := validArticle(now)
	a.Description = "Sponsored content about an LLM. " + a.Description
	if got := f.Filter([]article.Article{a}, now); len(got) != 0 {
		t.Fatal("excluded keyword must drop the article")
	}
}

func TestFilterContentBounds(t *testing.T) {
	t.Parallel()
	f := testScoreFilter()
	now := time.Now()

	short := validArticle(now)
	short.Title = "Tiny"
	long := validArticle(now)
	long.Title = strings.Repeat("x", 250)
	thin := validArticle(now)
	thin.Description = "too short"

	for name, a := range map[string]article.Article{"short title": short, "long title": long, "thin description": thin} {
		if got := f.Filter([]article.Article{a}, now); len(got) != 0 {
			t.Errorf("%s must be rejected", name)
		}
	}
}

func TestFilterGithubEngagementGate(t *testing.T) {
	t.Parallel()
	f := testScoreFilter()
	now := time.Now()

	a := validArticle(now)
	a.Source = "github_trending_ai"
	a.Stars = 5
	a.TodayStars = 2
	if got := f.Filter([]article.Article{a}, now); len(got) != 0 {
		t.Fatal("github item below both star gates must be rejected")
	}

	a.TodayStars = 50
	if got := f.Filter([]article.Article{a}, now); len(got) != 1 {
		t.Fatal("github item passing the today-stars gate must be admitted")
	}
}

func TestFilterPrimaryWindow(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Content.PrimaryWindowHours = 24
	f := NewScoreFilter(cfg.Scoring, cfg.Content, cfg.Keywords)
	now := time.Now()

	old := validArticle(now)
	old.PublishedAt = hoursAgo(now, 48)
	if got := f.Filter([]article.Article{old}, now); len(got) != 0 {
		t.Fatal("article outside the primary window must be rejected")
	}

	undated := validArticle(now)
	undated.PublishedAt = nil
	if got := f.Filter([]article.Article{undated}, now); len(got) != 1 {
		t.Fatal("undated article must not be hit by the window gate")
	}
}

func TestFilterSortsByScoreDescending(t *testing.T) {
	t.Parallel()
	f := testScoreFilter()
	now := time.Now()

	strong := validArticle(now)
	weak := validArticle(now)
	weak.URL = "https://example.com/weak"
	weak.Source = "mit_tech_review"

	got := f.Filter([]article.Article{weak, strong}, now)
	if len(got) != 2 {
		t.Fatalf("got %d admitted, want 2", len(got))
	}
	if got[0].Score < got[1].Score {
		t.Errorf("output not sorted by score: %v then %v", got[0].Score, got[1].Score)
	}
	if got[0].URL != strong.URL {
		t.Errorf("strong article should rank first, got %s", got[0].URL)
	}
}
