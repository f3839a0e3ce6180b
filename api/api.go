// Package api exposes the medium-sync HTTP endpoints.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/parthsinha/medium-sync/apperr"
	"github.com/parthsinha/medium-sync/ingest"
	"github.com/parthsinha/medium-sync/model"
	"github.com/parthsinha/medium-sync/store"
)

const (
	// DefaultUsername is synced when the request names no author.
	DefaultUsername = "parth-sinha"
	// DefaultLimit bounds the articles returned by a sync request.
	DefaultLimit = 10
)

// Server holds dependencies for the HTTP handlers.
type Server struct {
	store    *store.Store
	ingester *ingest.Service
	logger   *slog.Logger
	echo     *echo.Echo
}

// New wires up routes and returns a ready-to-use Server.
func New(st *store.Store, ingester *ingest.Service, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	srv := &Server{store: st, ingester: ingester, logger: logger, echo: e}
	srv.routes()
	return srv
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/medium", s.handleSync)
	s.echo.GET("/medium/stored", s.handleStored)
	s.echo.GET("/medium/categories", s.handleCategories)
}

type syncResponse struct {
	Articles []model.Article `json:"articles"`
	Total    int             `json:"total"`
}

type storedResponse struct {
	Articles []*model.StoredArticle `json:"articles"`
	Total    int                    `json:"total"`
	HasMore  bool                   `json:"hasMore"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleSync triggers an ingestion run. The limit bounds only the
// returned slice; every fetched article is persisted regardless.
func (s *Server) handleSync(c echo.Context) error {
	username := c.QueryParam("username")
	if username == "" {
		username = DefaultUsername
	}

	limit := DefaultLimit
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		}
		limit = parsed
	}

	result, err := s.ingester.IngestForAuthor(c.Request().Context(), username)
	if err != nil {
		s.logger.Error("ingestion failed", "username", username, "error", err)
		return s.classifiedError(c, err)
	}

	articles := result.Articles
	if len(articles) > limit {
		articles = articles[:limit]
	}

	return c.JSON(http.StatusOK, syncResponse{
		Articles: articles,
		Total:    result.Total,
	})
}

func (s *Server) handleStored(c echo.Context) error {
	articles, err := s.store.ListStoredArticles(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to list stored articles", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to fetch stored articles"})
	}
	if articles == nil {
		articles = []*model.StoredArticle{}
	}

	return c.JSON(http.StatusOK, storedResponse{
		Articles: articles,
		Total:    len(articles),
		// Pagination is not implemented on this path.
		HasMore: false,
	})
}

func (s *Server) handleCategories(c echo.Context) error {
	categories, err := s.store.ListCategoryNames(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to fetch categories"})
	}

	return c.JSON(http.StatusOK, categoriesResponse{Categories: categories})
}

// classifiedError maps an error kind to a status; raw causes never
// reach the client.
func (s *Server) classifiedError(c echo.Context, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindFetch:
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "unable to fetch Medium articles"})
	case apperr.KindParse:
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "error parsing Medium feed data"})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "an unexpected error occurred"})
	}
}
