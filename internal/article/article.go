// Package article defines the candidate news item shared by every pipeline
// stage, together with the category taxonomy and the canonical hashing rules
// used for deduplication and persistence.
package article

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Category is the closed set of digest categories.
type Category string

const (
	CategoryAcademic   Category = "academic"
	CategoryMedia      Category = "media"
	CategoryLabBlog    Category = "lab_blog"
	CategoryTools      Category = "tools"
	CategoryCommunity  Category = "community"
	CategoryNewsletter Category = "newsletter"
)

// Categories lists every valid category in fill-priority order.
var Categories = []Category{
	CategoryAcademic,
	CategoryMedia,
	CategoryLabBlog,
	CategoryTools,
	CategoryCommunity,
	CategoryNewsletter,
}

// Valid reports whether c is one of the six known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAcademic, CategoryMedia, CategoryLabBlog,
		CategoryTools, CategoryCommunity, CategoryNewsletter:
		return true
	}
	return false
}

// ParseCategory normalizes a raw category string. Unknown values come back
// as empty with ok=false so callers fall through to source-based rules.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c.Valid() {
		return c, true
	}
	return "", false
}

// TimeGroup marks which side of the recency threshold an article falls on.
type TimeGroup string

const (
	TimeGroupRecent     TimeGroup = "recent"
	TimeGroupHistorical TimeGroup = "historical"
)

// Article is one candidate item flowing through the pipeline. Collectors
// produce partial records; filters only ever annotate, never mutate identity
// fields.
type Article struct {
	URL         string
	Title       string
	Description string

	// Source is the collector-assigned source identifier (e.g. "arxiv",
	// "github_trending_ai"). SourceCategory is the per-feed category from
	// config, used when the article carries no explicit category.
	Source         string
	SourceCategory string

	Category Category
	Tags     []string

	// PublishedAt is nil when the upstream item had no parseable timestamp.
	PublishedAt *time.Time

	Score float64

	// Engagement signals; zero when the source does not report them.
	Stars      int
	TodayStars int
	Likes      int
	Downloads  int

	Summary       string
	MatchedTopics []string

	TimeGroup TimeGroup

	// IsExtra marks articles appended beyond the daily target by an
	// overflow detector; ExtraType names which one.
	IsExtra   bool
	ExtraType string
}

// timeLayouts covers the timestamp formats the configured sources emit.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTime parses a source timestamp into UTC. Unparseable or empty input
// returns nil rather than an error: a missing timestamp is a valid state.
func ParseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

// URLHash returns the canonical identity hash for an article URL.
func URLHash(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}

// ContentHash fingerprints title+description so re-posts of the same story
// under a different URL still collide. Case and runs of whitespace are
// normalized away before hashing.
func ContentHash(title, description string) string {
	key := normalizeText(title) + "|" + normalizeText(description)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
