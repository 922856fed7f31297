package filter

import (
	"sort"
	"strings"

	"aipulse/internal/article"
	"aipulse/internal/config"
	"aipulse/internal/logger"
	"aipulse/internal/metrics"
)

// Backlog is the persistence view the allocator borrows from when a day's
// batch cannot fill the target.
type Backlog interface {
	GetUnsent(limit int) ([]article.Article, error)
}

// sourceCategories maps known source identifiers to their category. Used
// when an article carries neither an explicit nor a feed-level category.
var sourceCategories = map[string]article.Category{
	"arxiv":              article.CategoryAcademic,
	"arxiv_cs_ai":        article.CategoryAcademic,
	"papers_with_code":   article.CategoryAcademic,
	"huggingface_papers": article.CategoryAcademic,
	"the_gradient":       article.CategoryAcademic,
	"nature_ai":          article.CategoryAcademic,
	"neurips":            article.CategoryAcademic,
	"icml":               article.CategoryAcademic,

	"jiqizhixin":      article.CategoryMedia,
	"synced":          article.CategoryMedia,
	"mit_tech_review": article.CategoryMedia,
	"the_decoder":     article.CategoryMedia,
	"semafor_ai":      article.CategoryMedia,
	"the_verge_ai":    article.CategoryMedia,

	"openai_blog":      article.CategoryLabBlog,
	"google_deepmind":  article.CategoryLabBlog,
	"meta_ai_blog":     article.CategoryLabBlog,
	"anthropic_blog":   article.CategoryLabBlog,
	"mistral_ai":       article.CategoryLabBlog,
	"xai_blog":         article.CategoryLabBlog,
	"tongyi_lab":       article.CategoryLabBlog,
	"zhipu_ai":         article.CategoryLabBlog,
	"huggingface_blog": article.CategoryLabBlog,

	"product_hunt_ai":    article.CategoryTools,
	"futurepedia":        article.CategoryTools,
	"theresanai":         article.CategoryTools,
	"huggingface_spaces": article.CategoryTools,
	"github_trending_ai": article.CategoryTools,

	"hacker_news": article.CategoryCommunity,
	"reddit_ml":   article.CategoryCommunity,
	"lilog":       article.CategoryCommunity,

	"the_batch":  article.CategoryNewsletter,
	"import_ai":  article.CategoryNewsletter,
	"bens_bites": article.CategoryNewsletter,
}

// categoryHints backs the last-resort keyword heuristic.
var categoryHints = []struct {
	category article.Category
	words    []string
}{
	{article.CategoryAcademic, []string{"arxiv", "paper", "research", "study", "benchmark"}},
	{article.CategoryTools, []string{"github", "tool", "app", "open source", "framework"}},
	{article.CategoryNewsletter, []string{"newsletter", "weekly digest", "roundup"}},
	{article.CategoryCommunity, []string{"reddit", "hacker news", "discussion"}},
}

// Classify resolves an article's category: explicit category, then the
// feed-level category, then the source table, then keyword hints, and
// finally media.
func Classify(a article.Article) article.Category {
	if a.Category.Valid() {
		return a.Category
	}
	if c, ok := article.ParseCategory(a.SourceCategory); ok {
		return c
	}
	if c, ok := sourceCategories[a.Source]; ok {
		return c
	}
	text := strings.ToLower(a.Title + " " + a.Description)
	for _, hint := range categoryHints {
		for _, w := range hint.words {
			if strings.Contains(text, w) {
				return hint.category
			}
		}
	}
	return article.CategoryMedia
}

// CategoryAllocator turns a balanced candidate pool into the day's final
// selection, honoring per-category quotas.
type CategoryAllocator struct {
	cfg     config.AllocatorConfig
	backlog Backlog
}

func NewCategoryAllocator(cfg config.AllocatorConfig, backlog Backlog) *CategoryAllocator {
	return &CategoryAllocator{cfg: cfg, backlog: backlog}
}

// Allocate selects up to MaxTargetCount articles. Every article is claimed
// at most once even when it qualifies for several steps.
func (c *CategoryAllocator) Allocate(candidates []article.Article) []article.Article {
	for i := range candidates {
		candidates[i].Category = Classify(candidates[i])
	}

	if c.cfg.DualChannel {
		return c.allocateDualChannel(candidates)
	}
	return c.allocateSingleChannel(candidates)
}

func (c *CategoryAllocator) allocateSingleChannel(candidates []article.Article) []article.Article {
	claimed := make(map[string]bool)
	var selected []article.Article

	take := func(pool []article.Article, limit int) {
		for _, a := range pool {
			if limit <= 0 || len(selected) >= c.cfg.MaxTargetCount {
				return
			}
			if claimed[a.URL] {
				continue
			}
			claimed[a.URL] = true
			selected = append(selected, a)
			limit--
		}
	}

	// freshest items first, regardless of category
	latest := append([]article.Article{}, candidates...)
	sortByRecencyScore(latest)
	take(latest, c.cfg.LatestCount)

	byCategory := groupByCategory(candidates)

	academic := byCategory[article.CategoryAcademic]
	sortByRecencyScore(academic)
	beforeAcademic := len(selected)
	take(academic, c.cfg.AcademicMax)
	if taken := len(selected) - beforeAcademic; taken < c.cfg.AcademicMin {
		logger.Warn("allocator: academic pool below minimum", "taken", taken, "minimum", c.cfg.AcademicMin)
	}

	tools := byCategory[article.CategoryTools]
	sortByScoreRecency(tools)
	take(tools, c.cfg.ToolsMax)

	labBlog := byCategory[article.CategoryLabBlog]
	sortByScoreRecency(labBlog)
	take(labBlog, c.cfg.LabBlogMax)

	// fill the remainder: media first, then the fallback chain
	fillOrder := []article.Category{
		article.CategoryMedia,
		article.CategoryLabBlog,
		article.CategoryTools,
		article.CategoryCommunity,
		article.CategoryNewsletter,
	}
	for _, cat := range fillOrder {
		if len(selected) >= c.cfg.TargetCount {
			break
		}
		pool := byCategory[cat]
		sortByScoreRecency(pool)
		take(pool, c.cfg.TargetCount-len(selected))
	}

	// borrow from the unsent backlog when the day's batch ran short
	if len(selected) < c.cfg.TargetCount && c.backlog != nil {
		needed := c.cfg.TargetCount - len(selected)
		borrowed, err := c.backlog.GetUnsent(needed + len(claimed))
		if err != nil {
			logger.Warn("allocator: backlog unavailable", "error", err)
		} else {
			before := len(selected)
			for i := range borrowed {
				borrowed[i].Category = Classify(borrowed[i])
			}
			take(borrowed, needed)
			if n := len(selected) - before; n > 0 {
				metrics.BacklogBorrowed.Add(float64(n))
				logger.Info("allocator: borrowed from backlog", "count", n)
			}
		}
	}

	if len(selected) > c.cfg.MaxTargetCount {
		selected = selected[:c.cfg.MaxTargetCount]
	}
	return selected
}

// allocateDualChannel builds two fixed-size channels: a score-ordered tools
// channel and a freshness-ordered academic/media channel. No backlog borrow
// in this mode.
func (c *CategoryAllocator) allocateDualChannel(candidates []article.Article) []article.Article {
	claimed := make(map[string]bool)
	var selected []article.Article

	take := func(pool []article.Article, limit int) {
		for _, a := range pool {
			if limit <= 0 {
				return
			}
			if claimed[a.URL] {
				continue
			}
			claimed[a.URL] = true
			selected = append(selected, a)
			limit--
		}
	}

	byCategory := groupByCategory(candidates)

	tools := byCategory[article.CategoryTools]
	sortByScoreRecency(tools)
	take(tools, c.cfg.ToolsChannelCount)

	var editorial []article.Article
	for _, cat := range []article.Category{article.CategoryAcademic, article.CategoryMedia, article.CategoryLabBlog} {
		editorial = append(editorial, byCategory[cat]...)
	}
	sortByRecencyScore(editorial)
	take(editorial, c.cfg.AcademicMediaChannelCount)

	return selected
}

func groupByCategory(articles []article.Article) map[article.Category][]article.Article {
	groups := make(map[article.Category][]article.Article)
	for _, a := range articles {
		groups[a.Category] = append(groups[a.Category], a)
	}
	return groups
}

func sortByRecencyScore(articles []article.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		pi, pj := articles[i].PublishedAt, articles[j].PublishedAt
		switch {
		case pi == nil && pj == nil:
			return articles[i].Score > articles[j].Score
		case pi == nil:
			return false
		case pj == nil:
			return true
		case !pi.Equal(*pj):
			return pi.After(*pj)
		}
		return articles[i].Score > articles[j].Score
	})
}
