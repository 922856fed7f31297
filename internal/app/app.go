// Package app wires the collectors, the selection pipeline, the summarizer,
// and delivery into one daily run.
package app

import (
	"context"
	"fmt"
	"time"

	"aipulse/internal/article"
	"aipulse/internal/collector"
	"aipulse/internal/config"
	"aipulse/internal/filter"
	"aipulse/internal/formatter"
	"aipulse/internal/logger"
	"aipulse/internal/metrics"
	"aipulse/internal/summarizer"
)

// fallbackSummaryRunes bounds rule-based summaries when the model is
// unavailable.
const fallbackSummaryRunes = 280

// Store is the persistence surface the agent needs; *storage.Store
// satisfies it.
type Store interface {
	filter.History
	filter.Backlog
	AddBatch(articles []article.Article) error
	MarkSentBatch(urls []string) error
	IsDateSent(date string) (bool, error)
	AddDigestHistory(date string, articleCount int, content string) error
}

// Sender delivers a rendered digest.
type Sender interface {
	Send(ctx context.Context, content string) error
}

// Agent runs the digest pipeline.
type Agent struct {
	cfg        *config.Config
	store      Store
	collectors []collector.Collector
	summarizer summarizer.Summarizer
	sender     Sender

	now func() time.Time
}

func New(cfg *config.Config, store Store, collectors []collector.Collector, sum summarizer.Summarizer, snd Sender) *Agent {
	return &Agent{
		cfg:        cfg,
		store:      store,
		collectors: collectors,
		summarizer: sum,
		sender:     snd,
		now:        time.Now,
	}
}

// Run executes one full pipeline pass: collect, filter, select, summarize,
// format, deliver, persist. A digest already sent today is not re-sent.
func (a *Agent) Run(ctx context.Context) error {
	start := a.now()
	date := start.Format("2006-01-02")

	if sent, err := a.store.IsDateSent(date); err != nil {
		logger.Warn("app: digest history check failed", "error", err)
	} else if sent {
		logger.Info("app: digest already sent today", "date", date)
		return nil
	}

	collected := a.collect(ctx)
	if len(collected) == 0 {
		return fmt.Errorf("no articles collected")
	}

	selected, pool := a.selectArticles(collected, start)
	if len(selected) == 0 {
		return fmt.Errorf("no articles survived selection")
	}
	if len(selected) < a.cfg.Temporal.DailyTargetCount {
		logger.Warn("app: digest below target size",
			"selected", len(selected), "target", a.cfg.Temporal.DailyTargetCount)
	}

	selected = append(selected, a.detectExtras(selected, pool, start)...)
	a.summarize(ctx, selected)

	digest := formatter.Render(start, selected)
	if err := a.sender.Send(ctx, digest); err != nil {
		metrics.DigestsFailed.Inc()
		return fmt.Errorf("send digest: %w", err)
	}
	metrics.DigestsSent.Inc()
	metrics.ItemsSelected.Add(float64(len(selected)))

	a.persist(date, pool, selected, digest)

	metrics.PipelineDuration.Observe(a.now().Sub(start).Seconds())
	metrics.LastRunTimestamp.SetToCurrentTime()
	logger.Info("app: run complete", "articles", len(selected), "took", a.now().Sub(start).Round(time.Millisecond).String())
	return nil
}

// collect gathers candidates from every collector; a failing collector is
// logged and skipped.
func (a *Agent) collect(ctx context.Context) []article.Article {
	var all []article.Article
	for _, c := range a.collectors {
		items, err := c.Collect(ctx)
		if err != nil {
			logger.Error("app: collector failed", "collector", c.Name(), "error", err)
			continue
		}
		metrics.ItemsCollected.WithLabelValues(c.Name()).Add(float64(len(items)))
		all = append(all, items...)
	}
	logger.Info("app: collected", "articles", len(all), "collectors", len(a.collectors))
	return all
}

// selectArticles runs scoring, dedup, temporal balancing, and category
// allocation. It returns the final selection and the deduplicated scored
// pool the overflow detectors draw from.
func (a *Agent) selectArticles(collected []article.Article, now time.Time) (selected, pool []article.Article) {
	scoreFilter := filter.NewScoreFilter(a.cfg.Scoring, a.cfg.Content, a.cfg.Keywords)
	scored := scoreFilter.Filter(collected, now)
	logger.Info("app: scored", "admitted", len(scored), "of", len(collected))

	dedup := filter.NewDeduplicator(a.cfg.Dedup, a.store)
	dedup.Reset()
	pool = dedup.Filter(scored)
	logger.Info("app: deduplicated", "kept", len(pool), "of", len(scored))

	balancer := filter.NewTemporalBalancer(a.cfg.Temporal)
	balanced := balancer.Select(pool, now)

	allocator := filter.NewCategoryAllocator(a.cfg.Allocator, a.store)
	selected = allocator.Allocate(balanced)
	return selected, pool
}

// detectExtras runs the overflow detectors over the pool articles the
// selection did not claim.
func (a *Agent) detectExtras(selected, pool []article.Article, now time.Time) []article.Article {
	claimed := make(map[string]bool, len(selected))
	for _, s := range selected {
		claimed[s.URL] = true
	}
	var remainder []article.Article
	for _, p := range pool {
		if !claimed[p.URL] {
			remainder = append(remainder, p)
		}
	}

	extras := filter.NewModelReleaseDetector(a.cfg.Overflow.ModelRelease).Detect(remainder, now)
	for _, e := range extras {
		claimed[e.URL] = true
	}

	var funPool []article.Article
	for _, r := range remainder {
		if !claimed[r.URL] {
			funPool = append(funPool, r)
		}
	}
	extras = append(extras, filter.NewFunProjectDetector(a.cfg.Overflow.FunProject).Detect(funPool)...)

	if len(extras) > 0 {
		logger.Info("app: extras injected", "count", len(extras))
	}
	return extras
}

// summarize fills Summary on each article, falling back to the rule-based
// summary when the model fails or the budget runs out.
func (a *Agent) summarize(ctx context.Context, articles []article.Article) {
	for i := range articles {
		if a.summarizer == nil {
			articles[i].Summary = summarizer.Fallback(articles[i], fallbackSummaryRunes)
			continue
		}
		summary, err := a.summarizer.Summarize(ctx, articles[i])
		if err != nil {
			logger.Debug("app: summarizer fell back", "url", articles[i].URL, "error", err)
			summary = summarizer.Fallback(articles[i], fallbackSummaryRunes)
		}
		articles[i].Summary = summary
	}
}

// persist stores the full pool, marks the sent ones, and records the digest.
// Persistence failures after a successful send are logged, not returned: the
// digest is already out.
func (a *Agent) persist(date string, pool, selected []article.Article, digest string) {
	if err := a.store.AddBatch(pool); err != nil {
		logger.Error("app: persist pool failed", "error", err)
	}
	if err := a.store.AddBatch(selected); err != nil {
		logger.Error("app: persist selection failed", "error", err)
	}

	urls := make([]string, len(selected))
	for i, s := range selected {
		urls[i] = s.URL
	}
	if err := a.store.MarkSentBatch(urls); err != nil {
		logger.Error("app: mark sent failed", "error", err)
	}
	if err := a.store.AddDigestHistory(date, len(selected), digest); err != nil {
		logger.Error("app: digest history failed", "error", err)
	}
}
