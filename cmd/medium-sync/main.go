package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/parthsinha/medium-sync/api"
	"github.com/parthsinha/medium-sync/feed"
	"github.com/parthsinha/medium-sync/ingest"
	"github.com/parthsinha/medium-sync/store"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

func main() {
	app := &cli.App{
		Name:    "medium-sync",
		Usage:   "Sync Medium author feeds into a local article store",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Value:   getDefaultDBPath(),
				Usage:   "Database file path",
				EnvVars: []string{"MEDIUM_SYNC_DB"},
			},
			&cli.StringFlag{
				Name:    "base-url",
				Value:   feed.DefaultBaseURL,
				Usage:   "Feed URL template (one %s verb for the username)",
				EnvVars: []string{"MEDIUM_SYNC_BASE_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Value:   ":8080",
						Usage:   "Listen address",
						EnvVars: []string{"MEDIUM_SYNC_ADDR"},
					},
				},
				Action: serve,
			},
			{
				Name:      "sync",
				Usage:     "Fetch and persist an author's feed",
				ArgsUsage: "<username>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   api.DefaultLimit,
						Usage:   "Maximum number of articles to print (all are persisted)",
					},
				},
				Action: syncAuthor,
			},
			{
				Name:   "articles",
				Usage:  "List stored articles, newest first",
				Action: listArticles,
			},
			{
				Name:   "categories",
				Usage:  "List distinct category names",
				Action: listCategories,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "medium-sync.db"
	}
	return filepath.Join(home, ".config", "medium-sync", "medium-sync.db")
}

func getStore(c *cli.Context) (*store.Store, error) {
	dbPath := c.String("db")

	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return s, nil
}

func newIngester(c *cli.Context, s *store.Store, logger *slog.Logger) *ingest.Service {
	fetcher := feed.NewFetcherWith(&http.Client{Timeout: 20 * time.Second}, c.String("base-url"))
	return ingest.New(s, fetcher, logger)
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func serve(c *cli.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	s, err := getStore(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.Close()

	srv := api.New(s, newIngester(c, s, logger), logger)

	httpServer := &http.Server{
		Addr:         c.String("addr"),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return cli.Exit(fmt.Sprintf("server error: %v", err), ExitGeneralError)
	case <-quit:
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func syncAuthor(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: medium-sync sync <username>", ExitUsageError)
	}

	username := c.Args().Get(0)
	limit := c.Int("limit")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := getStore(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.Close()

	result, err := newIngester(c, s, logger).IngestForAuthor(c.Context, username)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to sync %s: %v", username, err), ExitDataError)
	}

	articles := result.Articles
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	return outputJSON(map[string]interface{}{
		"username": username,
		"total":    result.Total,
		"stored":   result.Stored,
		"skipped":  result.Skipped,
		"articles": articles,
	})
}

func listArticles(c *cli.Context) error {
	s, err := getStore(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.Close()

	articles, err := s.ListStoredArticles(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to list articles: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"count":    len(articles),
		"articles": articles,
	})
}

func listCategories(c *cli.Context) error {
	s, err := getStore(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.Close()

	categories, err := s.ListCategoryNames(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to list categories: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"count":      len(categories),
		"categories": categories,
	})
}
