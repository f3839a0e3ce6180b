// Package model defines the core data structures for medium-sync.
package model

import (
	"errors"
	"time"
)

// Author represents a Medium author whose feed is being synced.
type Author struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	SyncStatus string     `json:"sync_status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// Validate checks if the author has required fields.
func (a *Author) Validate() error {
	if a.Username == "" {
		return errors.New("author username is required")
	}
	return nil
}

// Category represents a tag attached to one or more articles.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Article is the canonical representation of one feed item.
type Article struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author_id"`
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Creator     string    `json:"creator"`
	Categories  []string  `json:"categories"`
	Content     string    `json:"content,omitempty"`
	PubDate     time.Time `json:"pub_date"`
	LastUpdated time.Time `json:"last_updated"`
}

// Validate checks if the article has required fields.
func (a *Article) Validate() error {
	if a.GUID == "" {
		return errors.New("article guid is required")
	}
	if a.PubDate.IsZero() {
		return errors.New("article publication date is required")
	}
	return nil
}

// Age returns how long ago the article was published.
func (a *Article) Age() time.Duration {
	return time.Since(a.PubDate)
}

// HasCategory checks if the article carries the specified category.
func (a *Article) HasCategory(name string) bool {
	for _, c := range a.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// StoredArticle is an article as read back from the store, joined with
// its author's username and its category names.
type StoredArticle struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	LastUpdated time.Time `json:"last_updated_at"`
	Creator     string    `json:"creator"`
	Categories  []string  `json:"categories"`
}

// IngestResult reports the outcome of one ingestion run.
type IngestResult struct {
	// Articles holds every item that survived normalization, in feed order.
	Articles []Article `json:"articles"`
	// Stored is the number of articles persisted.
	Stored int `json:"stored"`
	// Total is the number of items fetched from the feed.
	Total int `json:"total"`
	// Skipped is the number of items dropped during normalization.
	Skipped int `json:"skipped"`
}
