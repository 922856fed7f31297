// Package storage is the article history store. It remembers every article
// the pipeline has seen, which ones were sent, and the digest history, so
// deduplication and backlog borrowing survive restarts.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"aipulse/internal/article"
	"aipulse/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url_hash TEXT UNIQUE NOT NULL,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	score REAL NOT NULL DEFAULT 0,
	published_at TEXT,
	collected_at TEXT NOT NULL,
	sent_at TEXT,
	is_sent INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_articles_url_hash ON articles(url_hash);
CREATE INDEX IF NOT EXISTS idx_articles_content_hash ON articles(content_hash);
CREATE INDEX IF NOT EXISTS idx_articles_collected_at ON articles(collected_at);
CREATE INDEX IF NOT EXISTS idx_articles_is_sent ON articles(is_sent);

CREATE TABLE IF NOT EXISTS digest_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	digest_date TEXT UNIQUE NOT NULL,
	article_count INTEGER NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	sent_at TEXT NOT NULL
);
`

// Store is the SQLite-backed article history.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open opens (creating if needed) the database at path and applies the
// schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Exists reports whether an article with this url hash is already stored.
func (s *Store) Exists(urlHash string) (bool, error) {
	return s.existsWhere(sq.Eq{"url_hash": urlHash})
}

// ExistsByContent reports whether an article with this content hash is
// already stored.
func (s *Store) ExistsByContent(contentHash string) (bool, error) {
	return s.existsWhere(sq.Eq{"content_hash": contentHash})
}

func (s *Store) existsWhere(cond sq.Eq) (bool, error) {
	query, args, err := s.sb.Select("1").From("articles").Where(cond).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = s.db.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return true, nil
}

// GetRecent returns articles collected within the last `days` days, newest
// first, capped at limit. The deduplicator samples these for fuzzy matching.
func (s *Store) GetRecent(days, limit int) ([]article.Article, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	query, args, err := s.sb.
		Select("url", "title", "description", "source", "category", "score", "published_at").
		From("articles").
		Where(sq.GtOrEq{"collected_at": cutoff}).
		OrderBy("collected_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	return s.queryArticles(query, args)
}

// GetUnsent returns stored-but-never-sent articles ordered by score then
// freshness. The category allocator borrows from these when a day's batch
// cannot fill the target.
func (s *Store) GetUnsent(limit int) ([]article.Article, error) {
	query, args, err := s.sb.
		Select("url", "title", "description", "source", "category", "score", "published_at").
		From("articles").
		Where(sq.Eq{"is_sent": 0}).
		OrderBy("score DESC", "collected_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unsent query: %w", err)
	}

	return s.queryArticles(query, args)
}

func (s *Store) queryArticles(query string, args []any) ([]article.Article, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []article.Article
	for rows.Next() {
		var a article.Article
		var category string
		var publishedAt sql.NullString
		if err := rows.Scan(&a.URL, &a.Title, &a.Description, &a.Source, &category, &a.Score, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if c, ok := article.ParseCategory(category); ok {
			a.Category = c
		}
		if publishedAt.Valid {
			a.PublishedAt = article.ParseTime(publishedAt.String)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}

// AddBatch upserts a batch of articles. Re-collected articles refresh their
// score and summary but keep their sent state.
func (s *Store) AddBatch(articles []article.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin add batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO articles (url_hash, url, title, description, content_hash, source, category, summary, score, published_at, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url_hash) DO UPDATE SET
			score = excluded.score,
			summary = excluded.summary,
			category = excluded.category
	`)
	if err != nil {
		return fmt.Errorf("prepare add batch: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range articles {
		var publishedAt any
		if a.PublishedAt != nil {
			publishedAt = a.PublishedAt.UTC().Format(time.RFC3339)
		}
		_, err := stmt.Exec(
			article.URLHash(a.URL), a.URL, a.Title, a.Description,
			article.ContentHash(a.Title, a.Description),
			a.Source, string(a.Category), a.Summary, a.Score,
			publishedAt, now,
		)
		if err != nil {
			return fmt.Errorf("insert article %s: %w", a.URL, err)
		}
	}

	return tx.Commit()
}

// MarkSentBatch flags the given urls as sent with the current timestamp.
func (s *Store) MarkSentBatch(urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	hashes := make([]string, len(urls))
	for i, u := range urls {
		hashes[i] = article.URLHash(u)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query, args, err := s.sb.
		Update("articles").
		Set("is_sent", 1).
		Set("sent_at", now).
		Where(sq.Eq{"url_hash": hashes}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark sent: %w", err)
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// CleanOld deletes sent articles collected more than `days` days ago.
// Unsent articles stay available for backlog borrowing.
func (s *Store) CleanOld(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	query, args, err := s.sb.
		Delete("articles").
		Where(sq.Lt{"collected_at": cutoff}).
		Where(sq.Eq{"is_sent": 1}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build clean: %w", err)
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("clean old: %w", err)
	}
	deleted, _ := res.RowsAffected()
	if deleted > 0 {
		logger.Info("cleaned old articles", "deleted", deleted)
	}
	return deleted, nil
}

// Stats returns article counts: total, sent, unsent, and per category.
func (s *Store) Stats() (map[string]int, error) {
	stats := make(map[string]int)

	var total, sent int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM articles`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM articles WHERE is_sent = 1`).Scan(&sent); err != nil {
		return nil, fmt.Errorf("count sent: %w", err)
	}
	stats["total"] = total
	stats["sent"] = sent
	stats["unsent"] = total - sent

	rows, err := s.db.Query(`SELECT category, COUNT(*) FROM articles GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		if category != "" {
			stats["category_"+category] = count
		}
	}
	return stats, rows.Err()
}

// IsDateSent reports whether a digest was already delivered for the given
// date (formatted 2006-01-02).
func (s *Store) IsDateSent(date string) (bool, error) {
	query, args, err := s.sb.Select("1").From("digest_history").
		Where(sq.Eq{"digest_date": date}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build digest query: %w", err)
	}

	var one int
	err = s.db.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("digest query: %w", err)
	}
	return true, nil
}

// AddDigestHistory records a delivered digest for the given date.
func (s *Store) AddDigestHistory(date string, articleCount int, content string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO digest_history (digest_date, article_count, content, sent_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(digest_date) DO UPDATE SET
			article_count = excluded.article_count,
			content = excluded.content,
			sent_at = excluded.sent_at
	`, date, articleCount, content, now)
	if err != nil {
		return fmt.Errorf("record digest history: %w", err)
	}
	return nil
}
