package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aipulse/internal/article"
	"aipulse/internal/collector"
	"aipulse/internal/config"
	"aipulse/internal/logger"
	"aipulse/internal/storage"
	"aipulse/internal/summarizer"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

type fakeCollector struct {
	name     string
	articles []article.Article
	err      error
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Collect(context.Context) ([]article.Article, error) {
	return f.articles, f.err
}

type captureSender struct {
	digests []string
	err     error
}

func (c *captureSender) Send(_ context.Context, content string) error {
	if c.err != nil {
		return c.err
	}
	c.digests = append(c.digests, content)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	cfg.Webhook.TestMode = true
	return cfg
}

func testStore(t *testing.T, cfg *config.Config) *storage.Store {
	t.Helper()
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// candidateTitles are deliberately dissimilar so fuzzy dedup keeps them all.
var candidateTitles = []string{
	"Scaling laws revisited for sparse LLM training",
	"A new benchmark for multimodal reasoning",
	"GPT agents learn to use spreadsheets",
	"Claude gains computer use abilities",
	"Gemini models now run on mobile hardware",
	"Diffusion transformers for video synthesis",
	"Open source dataset of scientific figures",
	"Llama fine-tuning without labeled data",
	"Why mixture of experts wins on LLM cost",
	"The arxiv paper behind the leaderboard shakeup",
	"Robotics framework learns from demonstrations",
	"Interpretability probes reveal planning in transformers",
	"Synthetic pipelines reach SOTA on translation",
	"Edge inference api cuts serving costs in half",
	"Retrieval library speeds up grounded generation",
}

func candidateArticles(now time.Time, n int) []article.Article {
	sources := []string{"openai_blog", "arxiv", "jiqizhixin", "mit_tech_review", "google_deepmind"}
	articles := make([]article.Article, n)
	for i := range articles {
		published := now.Add(-time.Duration(i+1) * time.Hour)
		articles[i] = article.Article{
			URL:         fmt.Sprintf("https://example.com/story/%d", i),
			Title:       candidateTitles[i%len(candidateTitles)],
			Description: strings.Repeat("Detailed coverage of the development and what it means. ", 2),
			Source:      sources[i%len(sources)],
			PublishedAt: &published,
		}
	}
	return articles
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	store := testStore(t, cfg)
	snd := &captureSender{}
	now := time.Now()

	agent := New(cfg, store,
		[]collector.Collector{&fakeCollector{name: "rss", articles: candidateArticles(now, 15)}},
		summarizer.Mock{}, snd)

	if err := agent.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(snd.digests) != 1 {
		t.Fatalf("got %d digests sent, want 1", len(snd.digests))
	}
	digest := snd.digests[0]
	if !strings.Contains(digest, "# AI Pulse") {
		t.Errorf("digest missing header:\n%s", digest)
	}
	if !strings.Contains(digest, "10 stories today.") {
		t.Errorf("digest should carry the full target count:\n%s", digest)
	}

	sent, err := store.IsDateSent(now.Format("2006-01-02"))
	if err != nil || !sent {
		t.Errorf("digest history not recorded: (%v, %v)", sent, err)
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["sent"] != 10 {
		t.Errorf("sent count = %d, want 10", stats["sent"])
	}
	if stats["total"] <= stats["sent"] {
		t.Errorf("unselected pool articles should persist as backlog: %v", stats)
	}
}

func TestRunSkipsWhenAlreadySentToday(t *testing.T) {
	cfg := testConfig(t)
	store := testStore(t, cfg)
	snd := &captureSender{}
	now := time.Now()

	agent := New(cfg, store,
		[]collector.Collector{&fakeCollector{name: "rss", articles: candidateArticles(now, 15)}},
		summarizer.Mock{}, snd)

	if err := agent.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := agent.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(snd.digests) != 1 {
		t.Fatalf("got %d digests, want 1 (same-day rerun must not resend)", len(snd.digests))
	}
}

func TestRunFailsWithNothingCollected(t *testing.T) {
	cfg := testConfig(t)
	store := testStore(t, cfg)

	agent := New(cfg, store,
		[]collector.Collector{&fakeCollector{name: "rss", err: errors.New("network down")}},
		summarizer.Mock{}, &captureSender{})

	if err := agent.Run(context.Background()); err == nil {
		t.Fatal("expected error when every collector fails")
	}
}

func TestRunSendFailureReported(t *testing.T) {
	cfg := testConfig(t)
	store := testStore(t, cfg)
	now := time.Now()

	agent := New(cfg, store,
		[]collector.Collector{&fakeCollector{name: "rss", articles: candidateArticles(now, 15)}},
		summarizer.Mock{}, &captureSender{err: errors.New("webhook down")})

	if err := agent.Run(context.Background()); err == nil {
		t.Fatal("expected send failure to surface")
	}

	// nothing marked sent on failure
	stats, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["sent"] != 0 {
		t.Errorf("sent = %d after failed delivery, want 0", stats["sent"])
	}
}

func TestRunInjectsModelReleaseExtras(t *testing.T) {
	cfg := testConfig(t)
	store := testStore(t, cfg)
	snd := &captureSender{}
	now := time.Now()

	pool := candidateArticles(now, 15)
	published := now.Add(-2 * time.Hour)
	pool = append(pool, article.Article{
		URL:         "https://example.com/release",
		Title:       "Acme releases GPT-7, its new flagship LLM",
		Description: strings.Repeat("The launch announcement covers the new transformer architecture. ", 2),
		Source:      "the_decoder",
		PublishedAt: &published,
	})

	agent := New(cfg, store,
		[]collector.Collector{&fakeCollector{name: "rss", articles: pool}},
		summarizer.Mock{}, snd)

	if err := agent.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	digest := snd.digests[0]
	if !strings.Contains(digest, "Model Releases") {
		// only fails if the release article was selected into the main ten;
		// with 15 higher-priority sources it lands in the remainder
		t.Errorf("expected model release extras section:\n%s", digest)
	}
}
