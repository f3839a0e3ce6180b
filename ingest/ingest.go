// Package ingest orchestrates the fetch, parse, normalize and persist
// pipeline for one author's feed.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/parthsinha/medium-sync/apperr"
	"github.com/parthsinha/medium-sync/feed"
	"github.com/parthsinha/medium-sync/model"
	"github.com/parthsinha/medium-sync/store"
)

// ArticleStore is the persistence façade the pipeline writes through.
// *store.Store satisfies it.
type ArticleStore interface {
	FindAuthorByUsername(ctx context.Context, username string) (int64, error)
	CreateAuthor(ctx context.Context, username string) (int64, error)
	TouchAuthorSync(ctx context.Context, authorID int64, t time.Time) error
	FindArticleByGUID(ctx context.Context, guid string) (int64, error)
	InsertArticle(ctx context.Context, a *model.Article) (int64, error)
	UpdateArticle(ctx context.Context, id int64, title string, lastUpdated time.Time) error
	FindOrCreateCategory(ctx context.Context, name string) (int64, error)
	LinkArticleCategory(ctx context.Context, articleID, categoryID int64) error
}

// Service runs ingestion for authors. Construct one per configuration;
// it holds no per-run state.
//
// Concurrent runs for the same author are not mutually excluded here;
// overlapping runs can race on lazily-created category and article
// rows. Callers that need exclusion must serialize externally.
type Service struct {
	store   ArticleStore
	fetcher *feed.Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an ingestion Service.
func New(st ArticleStore, fetcher *feed.Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// IngestForAuthor fetches the author's feed and persists every item
// that normalizes cleanly, in feed order.
//
// A fetch or parse failure aborts before any persistence. An item that
// fails normalization is logged and skipped. A persistence failure
// aborts the remainder of the run as an internal error; rows committed
// before the failure remain, and a retry of the whole run is safe
// because the per-article upsert is idempotent.
func (s *Service) IngestForAuthor(ctx context.Context, username string) (*model.IngestResult, error) {
	raw, err := s.fetcher.Fetch(ctx, username)
	if err != nil {
		return nil, err
	}

	items, err := feed.Parse(raw)
	if err != nil {
		return nil, err
	}

	articles := make([]model.Article, 0, len(items))
	skipped := 0
	for _, item := range items {
		article, err := feed.Normalize(item)
		if err != nil {
			skipped++
			s.logger.Warn("skipping item that failed normalization",
				"username", username, "error", err)
			continue
		}
		articles = append(articles, article)
	}

	authorID, err := s.resolveAuthor(ctx, username)
	if err != nil {
		return nil, apperr.Wrapf(apperr.KindInternal, err, "resolve author %s", username)
	}

	stored := 0
	for i := range articles {
		articles[i].AuthorID = authorID
		if err := s.persistArticle(ctx, &articles[i]); err != nil {
			return nil, apperr.Wrapf(apperr.KindInternal, err, "persist article %s", articles[i].GUID)
		}
		stored++
	}

	if err := s.store.TouchAuthorSync(ctx, authorID, s.now()); err != nil {
		return nil, apperr.Wrapf(apperr.KindInternal, err, "record sync for author %s", username)
	}

	s.logger.Info("ingestion complete",
		"username", username,
		"total", len(items),
		"stored", stored,
		"skipped", skipped)

	return &model.IngestResult{
		Articles: articles,
		Stored:   stored,
		Total:    len(items),
		Skipped:  skipped,
	}, nil
}

// resolveAuthor looks up the author by username, creating the row on
// first reference.
func (s *Service) resolveAuthor(ctx context.Context, username string) (int64, error) {
	id, err := s.store.FindAuthorByUsername(ctx, username)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	return s.store.CreateAuthor(ctx, username)
}

// persistArticle upserts one article by guid and links its categories.
// The article plus its links is the unit of atomicity; there is no
// cross-article transaction.
func (s *Service) persistArticle(ctx context.Context, article *model.Article) error {
	id, err := s.store.FindArticleByGUID(ctx, article.GUID)
	switch {
	case err == nil:
		// Re-ingestion refreshes only title and last-updated.
		if err := s.store.UpdateArticle(ctx, id, article.Title, article.LastUpdated); err != nil {
			return err
		}
	case errors.Is(err, store.ErrNotFound):
		id, err = s.store.InsertArticle(ctx, article)
		if err != nil {
			return err
		}
	default:
		return err
	}
	article.ID = id

	for _, name := range article.Categories {
		categoryID, err := s.store.FindOrCreateCategory(ctx, name)
		if err != nil {
			return err
		}
		if err := s.store.LinkArticleCategory(ctx, id, categoryID); err != nil {
			return err
		}
	}
	return nil
}
