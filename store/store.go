// Package store provides SQLite database operations for medium-sync.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parthsinha/medium-sync/model"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createSchema creates the database tables and indexes.
func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS authors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'success',
		last_sync_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guid TEXT UNIQUE NOT NULL,
		author_id INTEGER NOT NULL,
		title TEXT,
		link TEXT,
		published_at INTEGER NOT NULL,
		last_updated_at INTEGER NOT NULL,
		FOREIGN KEY (author_id) REFERENCES authors(id)
	);

	CREATE TABLE IF NOT EXISTS article_categories (
		article_id INTEGER NOT NULL,
		category_id INTEGER NOT NULL,
		PRIMARY KEY (article_id, category_id),
		FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE,
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC);
	CREATE INDEX IF NOT EXISTS idx_articles_author_id ON articles(author_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ---------- Authors ----------

// FindAuthorByUsername returns the author's id, or ErrNotFound.
func (s *Store) FindAuthorByUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM authors WHERE username = ?", username,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find author: %w", err)
	}
	return id, nil
}

// CreateAuthor inserts a new author with an initial sync status of
// "success" and no last-sync timestamp, returning its id.
func (s *Store) CreateAuthor(ctx context.Context, username string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO authors (username, sync_status) VALUES (?, 'success')", username,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert author: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// GetAuthor retrieves an author by id.
func (s *Store) GetAuthor(ctx context.Context, id int64) (*model.Author, error) {
	author := &model.Author{}
	var lastSync sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, sync_status, last_sync_at FROM authors WHERE id = ?", id,
	).Scan(&author.ID, &author.Username, &author.SyncStatus, &lastSync)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	if lastSync.Valid {
		t := unixToTime(lastSync.Int64)
		author.LastSyncAt = &t
	}
	return author, nil
}

// TouchAuthorSync records when the author's feed was last synced.
func (s *Store) TouchAuthorSync(ctx context.Context, authorID int64, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE authors SET last_sync_at = ? WHERE id = ?", t.Unix(), authorID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch author sync: %w", err)
	}
	return nil
}

// ---------- Articles ----------

// FindArticleByGUID returns the article's id, or ErrNotFound.
func (s *Store) FindArticleByGUID(ctx context.Context, guid string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM articles WHERE guid = ?", guid,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find article: %w", err)
	}
	return id, nil
}

// InsertArticle inserts a new article row and returns its id.
func (s *Store) InsertArticle(ctx context.Context, a *model.Article) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO articles (guid, author_id, title, link, published_at, last_updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.GUID, a.AuthorID, a.Title, a.Link, a.PubDate.Unix(), a.LastUpdated.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// UpdateArticle refreshes the mutable fields of an existing article:
// title and last-updated timestamp. Guid, author, link and the original
// publication timestamp never change on re-ingestion.
func (s *Store) UpdateArticle(ctx context.Context, id int64, title string, lastUpdated time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE articles SET title = ?, last_updated_at = ? WHERE id = ?",
		title, lastUpdated.Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	return nil
}

// CountArticles returns the number of stored articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// ---------- Categories ----------

// FindOrCreateCategory resolves a category by name, creating it on
// first sight, and returns its id.
func (s *Store) FindOrCreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM categories WHERE name = ?", name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to find category: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (name) VALUES (?)", name,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// LinkArticleCategory associates an article with a category. Linking
// an already-linked pair is a no-op.
func (s *Store) LinkArticleCategory(ctx context.Context, articleID, categoryID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO article_categories (article_id, category_id) VALUES (?, ?)",
		articleID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to link article category: %w", err)
	}
	return nil
}

// CountCategories returns the number of stored categories.
func (s *Store) CountCategories(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return n, nil
}

// ---------- Read queries ----------

// ListStoredArticles returns every stored article joined with its
// author's username and the deduplicated names of its categories,
// newest publication first. Articles with no categories get an empty
// slice, never nil.
func (s *Store) ListStoredArticles(ctx context.Context) ([]*model.StoredArticle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			a.guid,
			a.title,
			a.link,
			a.published_at,
			a.last_updated_at,
			au.username,
			COALESCE(GROUP_CONCAT(DISTINCT c.name), '') AS categories
		FROM articles a
		JOIN authors au ON a.author_id = au.id
		LEFT JOIN article_categories ac ON ac.article_id = a.id
		LEFT JOIN categories c ON c.id = ac.category_id
		GROUP BY a.id
		ORDER BY a.published_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stored articles: %w", err)
	}
	defer rows.Close()

	var articles []*model.StoredArticle
	for rows.Next() {
		art := &model.StoredArticle{}
		var publishedUnix, updatedUnix int64
		var categories string

		err := rows.Scan(&art.GUID, &art.Title, &art.Link, &publishedUnix, &updatedUnix, &art.Creator, &categories)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stored article: %w", err)
		}

		art.PublishedAt = unixToTime(publishedUnix)
		art.LastUpdated = unixToTime(updatedUnix)
		art.Categories = splitCategories(categories)
		articles = append(articles, art)
	}

	return articles, rows.Err()
}

// ListCategoryNames returns every category name, deduplicated and
// sorted ascending.
func (s *Store) ListCategoryNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT name FROM categories ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// splitCategories turns the comma-joined aggregate back into a slice,
// dropping empty segments.
func splitCategories(joined string) []string {
	if joined == "" {
		return []string{}
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Helper to convert Unix timestamp to time.Time
func unixToTime(unix int64) time.Time {
	return time.Unix(unix, 0).UTC()
}
