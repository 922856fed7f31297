package collector

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"aipulse/internal/article"
	"aipulse/internal/logger"
)

const githubTrendingSource = "github_trending_ai"

// GitHubTrendingCollector scrapes the GitHub trending page for AI projects.
type GitHubTrendingCollector struct {
	baseURL string
	client  *http.Client
}

var _ Collector = (*GitHubTrendingCollector)(nil)

// NewGitHubTrendingCollector scrapes baseURL (defaults to github.com
// trending for Python, daily range).
func NewGitHubTrendingCollector(baseURL string) *GitHubTrendingCollector {
	if baseURL == "" {
		baseURL = "https://github.com/trending/python?since=daily"
	}
	return &GitHubTrendingCollector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *GitHubTrendingCollector) Name() string { return githubTrendingSource }

func (c *GitHubTrendingCollector) Collect(ctx context.Context) ([]article.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build trending request: %w", err)
	}
	req.Header.Set("User-Agent", "aipulse/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch trending page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trending page returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse trending page: %w", err)
	}

	now := time.Now().UTC()
	var articles []article.Article
	doc.Find("article.Box-row").Each(func(i int, row *goquery.Selection) {
		a, ok := parseTrendingRow(row, now)
		if !ok {
			logger.Debug("github: skipped malformed row", "index", i)
			return
		}
		articles = append(articles, a)
	})

	logger.Info("github: trending scraped", "repos", len(articles))
	return articles, nil
}

var starsTodayPattern = regexp.MustCompile(`([\d,]+)\s+stars?\s+today`)

func parseTrendingRow(row *goquery.Selection, now time.Time) (article.Article, bool) {
	link := row.Find("h2 a").First()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return article.Article{}, false
	}

	repo := strings.TrimPrefix(strings.TrimSpace(href), "/")
	a := article.Article{
		URL:         "https://github.com/" + repo,
		Title:       repo,
		Description: strings.TrimSpace(row.Find("p").First().Text()),
		Source:      githubTrendingSource,
		Category:    article.CategoryTools,
		// trending membership implies current activity
		PublishedAt: &now,
	}

	row.Find(`a[href$="/stargazers"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		a.Stars = parseStarCount(s.Text())
		return false
	})
	if m := starsTodayPattern.FindStringSubmatch(row.Text()); m != nil {
		a.TodayStars = parseStarCount(m[1])
	}

	return a, true
}

// parseStarCount reads numbers like "12,345" or "1.2k".
func parseStarCount(raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasSuffix(s, "k") {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(s, "k"), 64); err == nil {
			return int(f * 1000)
		}
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
