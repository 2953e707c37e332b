package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pders01/wikan/internal/api"
)

var (
	savedPage  int
	savedLimit int
	savedQuery string
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Print a page of saved articles",
	Long: `saved prints one page of the personal article collection. With --query
it searches the saved articles instead (local server only).`,
	RunE: runSaved,
}

func init() {
	savedCmd.Flags().IntVarP(&savedPage, "page", "p", 0, "Zero-based page to print")
	savedCmd.Flags().IntVarP(&savedLimit, "limit", "n", 0, "Page size (defaults to list.page_size)")
	savedCmd.Flags().StringVar(&savedQuery, "query", "", "Search saved articles instead of listing them")
}

// savedLister is the part of the client the saved command uses.
type savedLister interface {
	ListArticles(ctx context.Context, skip, limit int) ([]api.SavedArticle, error)
	SearchSaved(ctx context.Context, query string, limit int) ([]api.SavedArticle, error)
}

func runSaved(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	limit := savedLimit
	if limit <= 0 {
		limit = cfg.List.PageSize
	}
	if savedPage < 0 {
		return fmt.Errorf("page must not be negative, got %d", savedPage)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
	defer cancel()

	return printSaved(ctx, cmd.OutOrStdout(), api.NewClient(cfg), savedPage, limit, savedQuery)
}

func printSaved(ctx context.Context, w io.Writer, client savedLister, page, limit int, query string) error {
	var (
		articles []api.SavedArticle
		err      error
	)
	if q := strings.TrimSpace(query); q != "" {
		articles, err = client.SearchSaved(ctx, q, limit)
	} else {
		articles, err = client.ListArticles(ctx, page*limit, limit)
	}
	if err != nil {
		return err
	}

	if len(articles) == 0 {
		fmt.Fprintln(w, "No saved articles")
		return nil
	}

	title := color.New(color.Bold)
	muted := color.New(color.Faint)
	for _, a := range articles {
		fmt.Fprintf(w, "%s %s\n", muted.Sprintf("#%d", a.ID), title.Sprint(a.WikipediaTitle))

		meta := []string{sentimentLabel(a.SentimentLabel)}
		if !a.SavedAt.IsZero() {
			meta = append(meta, a.SavedAt.Local().Format(time.DateTime))
		}
		meta = append(meta, fmt.Sprintf("%d words", a.WordCount))
		fmt.Fprintf(w, "    %s\n", strings.Join(meta, " • "))

		if a.WikipediaURL != "" {
			fmt.Fprintf(w, "    %s\n", a.WikipediaURL)
		}
		if notes := a.Notes(); notes != "" {
			fmt.Fprintf(w, "    notes: %s\n", strings.Join(strings.Fields(notes), " "))
		}
	}
	return nil
}

func sentimentLabel(s api.Sentiment) string {
	switch s {
	case api.SentimentPositive:
		return color.GreenString(string(s))
	case api.SentimentNegative:
		return color.RedString(string(s))
	default:
		return string(api.SentimentNeutral)
	}
}
