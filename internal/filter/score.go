package filter

import (
	"math"
	"regexp"
	"sort"
	"time"

	"aipulse/internal/article"
	"aipulse/internal/config"
	"aipulse/internal/logger"
	"aipulse/internal/metrics"
)

// defaultSourcePriority is used when a source has no configured priority.
const defaultSourcePriority = 0.5

// ScoreFilter assigns each article a composite score and admits those that
// clear the configured threshold and content gates.
type ScoreFilter struct {
	scoring config.ScoringConfig
	content config.ContentConfig

	// topicPatterns holds a word-boundary regexp per keyword, grouped by
	// topic label; excludedPatterns drop an article outright.
	topicPatterns    map[string][]*regexp.Regexp
	excludedPatterns []*regexp.Regexp
}

func NewScoreFilter(scoring config.ScoringConfig, content config.ContentConfig, keywords config.KeywordsConfig) *ScoreFilter {
	f := &ScoreFilter{
		scoring:       scoring,
		content:       content,
		topicPatterns: make(map[string][]*regexp.Regexp),
	}
	for topic, words := range keywords.Categories {
		for _, w := range words {
			f.topicPatterns[topic] = append(f.topicPatterns[topic], keywordPattern(w))
		}
	}
	for _, w := range keywords.Excluded {
		f.excludedPatterns = append(f.excludedPatterns, keywordPattern(w))
	}
	return f
}

func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
}

// Filter scores every article, drops the ones that fail admission, and
// returns the survivors sorted by score descending (recency breaks ties).
func (f *ScoreFilter) Filter(articles []article.Article, now time.Time) []article.Article {
	var admitted []article.Article
	for _, a := range articles {
		scored, ok := f.admit(a, now)
		if !ok {
			metrics.ItemsDiscarded.Inc()
			continue
		}
		admitted = append(admitted, scored)
	}

	sort.SliceStable(admitted, func(i, j int) bool {
		if admitted[i].Score != admitted[j].Score {
			return admitted[i].Score > admitted[j].Score
		}
		return publishedAfter(admitted[i].PublishedAt, admitted[j].PublishedAt)
	})
	return admitted
}

// Score computes the composite score without any admission decision.
func (f *ScoreFilter) Score(a article.Article, now time.Time) (float64, []string) {
	keywordScore, topics := f.keywordScore(a)
	w := f.scoring.Weights

	score := w.SourcePriority*f.sourcePriority(a.Source) +
		w.KeywordMatch*keywordScore +
		w.Recency*recencyScore(a.PublishedAt, now) +
		w.Engagement*engagementScore(a)

	return math.Round(score*1000) / 1000, topics
}

func (f *ScoreFilter) admit(a article.Article, now time.Time) (article.Article, bool) {
	text := a.Title + " " + a.Description
	for _, p := range f.excludedPatterns {
		if p.MatchString(text) {
			logger.Debug("score: excluded keyword", "title", a.Title)
			return a, false
		}
	}

	titleLen := len([]rune(a.Title))
	if titleLen < f.content.MinTitleLen || titleLen > f.content.MaxTitleLen {
		return a, false
	}
	if len([]rune(a.Description)) < f.content.MinDescriptionLen {
		return a, false
	}

	if f.content.PrimaryWindowHours > 0 && a.PublishedAt != nil {
		age := now.Sub(*a.PublishedAt)
		if age > time.Duration(f.content.PrimaryWindowHours)*time.Hour {
			return a, false
		}
	}

	if !f.passesEngagementGates(a) {
		return a, false
	}

	score, topics := f.Score(a, now)
	a.Score = score
	a.MatchedTopics = topics
	if score < f.scoring.MinScore {
		return a, false
	}
	return a, true
}

// passesEngagementGates applies per-source minimums; sources without gates
// always pass.
func (f *ScoreFilter) passesEngagementGates(a article.Article) bool {
	switch a.Source {
	case "github_trending_ai":
		g := f.scoring.Github
		return a.Stars >= g.MinStars || a.TodayStars >= g.MinTodayStars
	case "huggingface_papers", "huggingface_spaces":
		g := f.scoring.HuggingFace
		return a.Likes >= g.MinLikes || a.Downloads >= g.MinDownloads
	}
	return true
}

func (f *ScoreFilter) sourcePriority(source string) float64 {
	if p, ok := f.scoring.SourcePriority[source]; ok {
		return p
	}
	return defaultSourcePriority
}

// keywordScore returns 0 with no matches, otherwise 0.6 plus 0.1 per match
// capped at 1.0, along with the topic labels that matched.
func (f *ScoreFilter) keywordScore(a article.Article) (float64, []string) {
	text := a.Title + " " + a.Description
	matches := 0
	var topics []string
	for topic, patterns := range f.topicPatterns {
		matchedTopic := false
		for _, p := range patterns {
			if p.MatchString(text) {
				matches++
				matchedTopic = true
			}
		}
		if matchedTopic {
			topics = append(topics, topic)
		}
	}
	if matches == 0 {
		return 0, nil
	}
	sort.Strings(topics)
	return math.Min(0.6+0.1*float64(matches), 1.0), topics
}

// recencyScore steps down with age; a missing timestamp is neutral.
func recencyScore(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return 0.5
	}
	age := now.Sub(*publishedAt)
	switch {
	case age <= 24*time.Hour:
		return 1.0
	case age <= 72*time.Hour:
		return 0.7
	case age <= 7*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

func engagementScore(a article.Article) float64 {
	score := float64(a.TodayStars)*0.01 +
		float64(a.Stars)*0.001 +
		float64(a.Likes)*0.01 +
		float64(a.Downloads)*0.0001
	return math.Min(score, 1.0)
}

func publishedAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
