// Package formatter renders the selected articles into the Markdown digest
// that gets delivered.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"aipulse/internal/article"
)

var categoryHeadings = map[article.Category]string{
	article.CategoryAcademic:   "📄 Research",
	article.CategoryMedia:      "📰 News",
	article.CategoryLabBlog:    "🧪 From the Labs",
	article.CategoryTools:      "🛠 Tools & Projects",
	article.CategoryCommunity:  "💬 Community",
	article.CategoryNewsletter: "✉️ Newsletters",
}

var extraHeadings = map[string]string{
	"model_release": "🚀 Model Releases",
	"fun_project":   "🎮 Worth a Look",
}

// Render builds the daily digest. Regular articles are grouped by category
// in the fixed category order; extras get their own trailing sections.
func Render(date time.Time, articles []article.Article) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# AI Pulse — %s\n", date.Format("2006-01-02"))

	regular, extras := split(articles)
	fmt.Fprintf(&b, "\n%d stories today.\n", len(regular))

	groups := make(map[article.Category][]article.Article)
	for _, a := range regular {
		groups[a.Category] = append(groups[a.Category], a)
	}

	for _, cat := range article.Categories {
		items := groups[cat]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", categoryHeadings[cat])
		for _, a := range items {
			writeItem(&b, a)
		}
	}

	for _, extraType := range []string{"model_release", "fun_project"} {
		var items []article.Article
		for _, a := range extras {
			if a.ExtraType == extraType {
				items = append(items, a)
			}
		}
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", extraHeadings[extraType])
		for _, a := range items {
			writeItem(&b, a)
		}
	}

	return b.String()
}

func writeItem(b *strings.Builder, a article.Article) {
	fmt.Fprintf(b, "- **[%s](%s)**", escape(a.Title), a.URL)
	var meta []string
	if a.Source != "" {
		meta = append(meta, a.Source)
	}
	if a.PublishedAt != nil {
		meta = append(meta, a.PublishedAt.Format("2006-01-02"))
	}
	if a.Stars > 0 {
		meta = append(meta, fmt.Sprintf("★ %d", a.Stars))
	}
	if len(meta) > 0 {
		fmt.Fprintf(b, " · %s", strings.Join(meta, " · "))
	}
	b.WriteString("\n")
	if a.Summary != "" {
		fmt.Fprintf(b, "  %s\n", a.Summary)
	}
}

func split(articles []article.Article) (regular, extras []article.Article) {
	for _, a := range articles {
		if a.IsExtra {
			extras = append(extras, a)
		} else {
			regular = append(regular, a)
		}
	}
	return regular, extras
}

func escape(s string) string {
	replacer := strings.NewReplacer("[", "\\[", "]", "\\]")
	return replacer.Replace(s)
}
