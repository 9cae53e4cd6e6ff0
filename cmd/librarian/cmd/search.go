package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/librarian/internal/search"
	"github.com/Aman-CERP/librarian/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the library by meaning",
		Long: `Search indexed books with a natural-language query. Results are
grouped per book and ranked by the best-matching passage.

Examples:
  librarian search "a whaling voyage gone wrong"
  librarian search --limit 3 "siege of a walled city"
  librarian search --format json "unrequited love"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of books returned (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, limit int, format string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.Search.MaxResults
	}

	st, err := openStore(ctx, cfg, p)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// Over-fetch chunk hits so fusion can still fill the limit after
	// collapsing multiple chunks of the same book.
	hits, err := st.Query(ctx, query, limit*search.OverFetchFactor)
	if err != nil {
		return err
	}
	books := search.Fuse(hits, limit)

	slog.Info("search finished",
		slog.String("query", query),
		slog.Int("hits", len(hits)),
		slog.Int("books", len(books)))

	if format == "json" {
		return formatJSON(cmd, books)
	}

	p.Results(query, books)
	return nil
}

func formatJSON(cmd *cobra.Command, books []search.RankedBook) error {
	type jsonBook struct {
		Title     string  `json:"title"`
		Author    string  `json:"author"`
		Filename  string  `json:"filename"`
		Format    string  `json:"format"`
		Length    int     `json:"length"`
		Relevance float64 `json:"relevance"`
		BestMatch string  `json:"best_match"`
	}

	out := make([]jsonBook, 0, len(books))
	for _, b := range books {
		out = append(out, jsonBook{
			Title:     b.Title,
			Author:    b.Author,
			Filename:  b.Filename,
			Format:    b.Format,
			Length:    b.Length,
			Relevance: b.Relevance,
			BestMatch: b.BestMatch,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
