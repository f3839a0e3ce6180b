package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parthsinha/medium-sync/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testArticle(guid string, authorID int64, published time.Time) *model.Article {
	return &model.Article{
		AuthorID:    authorID,
		GUID:        guid,
		Title:       "Title for " + guid,
		Link:        "https://medium.com/p/" + guid,
		PubDate:     published,
		LastUpdated: published.Add(time.Hour),
	}
}

func TestNewStore(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()
}

func TestStore_CreateAndFindAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Lookup before creation
	_, err := s.FindAuthorByUsername(ctx, "jdoe")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)
	assert.NotZero(t, id)

	found, err := s.FindAuthorByUsername(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	// New authors start with sync status "success" and no sync time.
	author, err := s.GetAuthor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", author.Username)
	assert.Equal(t, "success", author.SyncStatus)
	assert.Nil(t, author.LastSyncAt)
}

func TestStore_CreateAuthor_DuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)

	_, err = s.CreateAuthor(ctx, "jdoe")
	assert.Error(t, err, "username is unique")
}

func TestStore_TouchAuthorSync(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)

	syncedAt := time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchAuthorSync(ctx, id, syncedAt))

	author, err := s.GetAuthor(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, author.LastSyncAt)
	assert.Equal(t, syncedAt.Unix(), author.LastSyncAt.Unix())
}

func TestStore_InsertAndFindArticle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	authorID, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)

	_, err = s.FindArticleByGUID(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.InsertArticle(ctx, testArticle("g1", authorID, time.Now()))
	require.NoError(t, err)
	assert.NotZero(t, id)

	found, err := s.FindArticleByGUID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, id, found)
}

func TestStore_InsertArticle_DuplicateGUID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	authorID, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)

	_, err = s.InsertArticle(ctx, testArticle("g1", authorID, time.Now()))
	require.NoError(t, err)

	_, err = s.InsertArticle(ctx, testArticle("g1", authorID, time.Now()))
	assert.Error(t, err, "guid is unique across the store")
}

func TestStore_UpdateArticle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	authorID, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)

	published := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	art := testArticle("g1", authorID, published)
	id, err := s.InsertArticle(ctx, art)
	require.NoError(t, err)

	newUpdated := published.Add(48 * time.Hour)
	require.NoError(t, s.UpdateArticle(ctx, id, "Revised Title", newUpdated))

	stored, err := s.ListStoredArticles(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Revised Title", stored[0].Title)
	assert.Equal(t, newUpdated.Unix(), stored[0].LastUpdated.Unix())
	// Immutable fields survive the update.
	assert.Equal(t, "g1", stored[0].GUID)
	assert.Equal(t, art.Link, stored[0].Link)
	assert.Equal(t, published.Unix(), stored[0].PublishedAt.Unix())
}

func TestStore_FindOrCreateCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.FindOrCreateCategory(ctx, "golang")
	require.NoError(t, err)
	assert.NotZero(t, first)

	// Same name resolves to the same row.
	again, err := s.FindOrCreateCategory(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// Names are case-sensitive.
	other, err := s.FindOrCreateCategory(ctx, "Golang")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	count, err := s.CountCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_LinkArticleCategory_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	authorID, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)
	articleID, err := s.InsertArticle(ctx, testArticle("g1", authorID, time.Now()))
	require.NoError(t, err)
	categoryID, err := s.FindOrCreateCategory(ctx, "golang")
	require.NoError(t, err)

	require.NoError(t, s.LinkArticleCategory(ctx, articleID, categoryID))
	// Duplicate link insert is a silent no-op.
	require.NoError(t, s.LinkArticleCategory(ctx, articleID, categoryID))

	stored, err := s.ListStoredArticles(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []string{"golang"}, stored[0].Categories)
}

func TestStore_ListStoredArticles_Ordering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	authorID, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		guid := fmt.Sprintf("g%d", i)
		_, err := s.InsertArticle(ctx, testArticle(guid, authorID, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	stored, err := s.ListStoredArticles(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 5)

	// Newest publication first.
	for i := 0; i < len(stored)-1; i++ {
		assert.True(t, !stored[i].PublishedAt.Before(stored[i+1].PublishedAt),
			"articles should be ordered by publication timestamp descending")
	}
	assert.Equal(t, "g4", stored[0].GUID)
	assert.Equal(t, "g0", stored[4].GUID)
}

func TestStore_ListStoredArticles_JoinsAuthorAndCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	authorID, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)
	articleID, err := s.InsertArticle(ctx, testArticle("g1", authorID, time.Now()))
	require.NoError(t, err)

	for _, name := range []string{"tech", "go"} {
		categoryID, err := s.FindOrCreateCategory(ctx, name)
		require.NoError(t, err)
		require.NoError(t, s.LinkArticleCategory(ctx, articleID, categoryID))
	}

	stored, err := s.ListStoredArticles(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	assert.Equal(t, "jdoe", stored[0].Creator)
	assert.ElementsMatch(t, []string{"tech", "go"}, stored[0].Categories)
}

func TestStore_ListStoredArticles_NoCategoriesIsEmptyList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	authorID, err := s.CreateAuthor(ctx, "jdoe")
	require.NoError(t, err)
	_, err = s.InsertArticle(ctx, testArticle("g1", authorID, time.Now()))
	require.NoError(t, err)

	stored, err := s.ListStoredArticles(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	assert.NotNil(t, stored[0].Categories, "uncategorized articles get an empty list, never nil")
	assert.Empty(t, stored[0].Categories)
}

func TestStore_ListCategoryNames_SortedDistinct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"tech", "go", "devops", "go"} {
		_, err := s.FindOrCreateCategory(ctx, name)
		require.NoError(t, err)
	}

	names, err := s.ListCategoryNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"devops", "go", "tech"}, names)
}

func TestStore_ListCategoryNames_Empty(t *testing.T) {
	s := newTestStore(t)

	names, err := s.ListCategoryNames(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}
