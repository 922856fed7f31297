package filter

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"aipulse/internal/article"
	"aipulse/internal/config"
	"aipulse/internal/metrics"
)

const (
	ExtraTypeModelRelease = "model_release"
	ExtraTypeFunProject   = "fun_project"
)

// modelPatterns recognize model names in release announcements. Each entry
// carries the owning company so per-run dedupe works on (company, model).
var modelPatterns = []struct {
	company string
	pattern *regexp.Regexp
}{
	{"openai", regexp.MustCompile(`(?i)\b(gpt-?[0-9]+[a-z0-9.\-]*|o[0-9]+(?:-mini)?|sora(?:\s?[0-9])?|dall-?e\s?[0-9]?)\b`)},
	{"anthropic", regexp.MustCompile(`(?i)\b(claude\s?[0-9.]*(?:\s?(?:opus|sonnet|haiku))?)\b`)},
	{"google", regexp.MustCompile(`(?i)\b(gemini\s?[0-9.]+[a-z\s]*?(?:pro|flash|ultra)?|gemma-?[0-9]*)\b`)},
	{"meta", regexp.MustCompile(`(?i)\b(llama\s?-?[0-9.]+[a-z0-9\-]*)\b`)},
	{"mistral", regexp.MustCompile(`(?i)\b(mistral\s?(?:large|small|[0-9][a-z0-9]*)|mixtral[\s\-]?[0-9x]*)\b`)},
	{"xai", regexp.MustCompile(`(?i)\b(grok-?[0-9]*)\b`)},
	{"microsoft", regexp.MustCompile(`(?i)\b(phi-?[0-9][a-z0-9.\-]*)\b`)},
	{"alibaba", regexp.MustCompile(`(?i)\b(qwen-?[0-9]*[a-z0-9.\-]*)\b`)},
	{"zhipu", regexp.MustCompile(`(?i)\b(glm-?[0-9][a-z0-9.\-]*)\b`)},
	{"deepseek", regexp.MustCompile(`(?i)\b(deepseek[\s\-]?[a-z0-9.]*)\b`)},
	{"stability", regexp.MustCompile(`(?i)\b(stable\s?diffusion\s?[0-9.]*|sd-?xl)\b`)},
	{"blackforest", regexp.MustCompile(`(?i)\b(flux(?:\.[0-9])?)\b`)},
}

// aiLabSources always count as launch-capable sources even when no model
// pattern matches the text.
var aiLabSources = map[string]bool{
	"openai_blog":     true,
	"anthropic_blog":  true,
	"google_deepmind": true,
	"meta_ai_blog":    true,
	"mistral_ai":      true,
	"xai_blog":        true,
	"tongyi_lab":      true,
	"zhipu_ai":        true,
}

// ModelReleaseDetector finds fresh model launch announcements among the
// articles the allocator left behind and tags them as cap-exempt extras.
type ModelReleaseDetector struct {
	cfg      config.ModelReleaseConfig
	keywords []string
	seen     map[string]bool
}

func NewModelReleaseDetector(cfg config.ModelReleaseConfig) *ModelReleaseDetector {
	d := &ModelReleaseDetector{cfg: cfg, seen: make(map[string]bool)}
	for _, k := range cfg.Keywords {
		d.keywords = append(d.keywords, strings.ToLower(k))
	}
	return d
}

// Detect returns up to MaxExtra model-release extras from the remainder.
// The same (company, model) pair is reported at most once per run.
func (d *ModelReleaseDetector) Detect(remainder []article.Article, now time.Time) []article.Article {
	var extras []article.Article
	window := time.Duration(d.cfg.WindowHours) * time.Hour

	for _, a := range remainder {
		if len(extras) >= d.cfg.MaxExtra {
			break
		}
		// the window only excludes provably stale items; undated ones pass
		if a.PublishedAt != nil && now.Sub(*a.PublishedAt) > window {
			continue
		}
		if !d.matchesKeyword(a) {
			continue
		}
		company, model, matched := matchModel(a.Title + " " + a.Description)
		if !matched && !aiLabSources[a.Source] {
			continue
		}
		if matched {
			key := company + "_" + strings.ToLower(strings.Join(strings.Fields(model), " "))
			if d.seen[key] {
				continue
			}
			d.seen[key] = true
		}

		a.IsExtra = true
		a.ExtraType = ExtraTypeModelRelease
		extras = append(extras, a)
		metrics.ExtrasInjected.WithLabelValues(ExtraTypeModelRelease).Inc()
	}
	return extras
}

// matchesKeyword is a substring check so inflected forms ("releases",
// "launching") still hit.
func (d *ModelReleaseDetector) matchesKeyword(a article.Article) bool {
	text := strings.ToLower(a.Title + " " + a.Description)
	for _, k := range d.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func matchModel(text string) (company, model string, ok bool) {
	for _, mp := range modelPatterns {
		if m := mp.pattern.FindString(text); m != "" {
			return mp.company, m, true
		}
	}
	return "", "", false
}

// Vocabulary for the notable-project detector. Boring matches veto the
// project outright.
var (
	productivityWords = []string{
		"productivity", "workflow", "automation", "assistant", "copilot",
		"cli", "terminal", "editor", "plugin", "extension",
	}
	funWords = []string{
		"game", "music", "art", "creative", "generate", "voice", "avatar",
		"meme", "pixel", "toy", "playground", "fun",
	}
	boringWords = []string{
		"awesome list", "curated list", "interview questions", "cheatsheet",
		"roadmap", "tutorial collection", "boilerplate",
	}
)

// codeHostingSources are the only sources the fun-project detector looks at.
var codeHostingSources = map[string]bool{
	"github_trending_ai": true,
}

// FunProjectDetector surfaces entertaining or productivity-boosting code
// projects the quota allocation passed over.
type FunProjectDetector struct {
	cfg config.FunProjectConfig
}

func NewFunProjectDetector(cfg config.FunProjectConfig) *FunProjectDetector {
	return &FunProjectDetector{cfg: cfg}
}

// Detect scores each code-hosting article on vocabulary and star signals
// and returns the top MaxExtra as extras.
func (d *FunProjectDetector) Detect(remainder []article.Article) []article.Article {
	type scored struct {
		a     article.Article
		score float64
	}
	var candidates []scored

	for _, a := range remainder {
		if !codeHostingSources[a.Source] {
			continue
		}
		score, ok := funScore(a)
		if !ok {
			continue
		}
		candidates = append(candidates, scored{a: a, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var extras []article.Article
	for _, c := range candidates {
		if len(extras) >= d.cfg.MaxExtra {
			break
		}
		c.a.IsExtra = true
		c.a.ExtraType = ExtraTypeFunProject
		extras = append(extras, c.a)
		metrics.ExtrasInjected.WithLabelValues(ExtraTypeFunProject).Inc()
	}
	return extras
}

// funScore starts at 0.5, adds 0.1 per vocabulary match and a star bonus,
// capped at 1.0. Boring vocabulary disqualifies.
func funScore(a article.Article) (float64, bool) {
	text := strings.ToLower(a.Title + " " + a.Description)

	for _, w := range boringWords {
		if strings.Contains(text, w) {
			return 0, false
		}
	}

	matches := 0
	for _, w := range append(append([]string{}, productivityWords...), funWords...) {
		if strings.Contains(text, w) {
			matches++
		}
	}
	if matches == 0 {
		return 0, false
	}

	score := 0.5 + 0.1*float64(matches)
	switch {
	case a.Stars > 1000:
		score += 0.3
	case a.Stars > 100:
		score += 0.2
	case a.Stars > 10:
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, true
}
