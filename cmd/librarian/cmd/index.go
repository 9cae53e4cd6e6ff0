package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/librarian/internal/index"
	"github.com/Aman-CERP/librarian/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Index a book file or a directory of books",
		Long: `Index a single book or every supported book under a directory.

Books already in the store are skipped; pass --reindex to re-process
them. Re-indexing replaces a book's chunks, it never duplicates them.

Examples:
  librarian index ~/books
  librarian index ~/books/moby-dick.epub
  librarian index --reindex ~/books`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, args[0], reindex)
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", false, "Re-process books that are already indexed")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, reindex bool) error {
	p := ui.NewPrinter(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path %s: %w", path, err)
	}

	st, err := openStore(ctx, cfg, p)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	slog.Info("index command started",
		slog.String("path", path),
		slog.Bool("reindex", reindex))

	runner := index.NewRunner(st)
	runner.SkipIndexed = !reindex
	runner.OnProgress = func(file string, done, total int) {
		p.Info(fmt.Sprintf("  [%d/%d] %s", done, total, filepath.Base(file)))
	}

	var stats index.Stats
	if info.IsDir() {
		p.Info("Indexing directory: " + path)
		stats, err = runner.Directory(ctx, path)
		if err != nil {
			return err
		}
	} else {
		if err := runner.File(ctx, path); err != nil {
			return err
		}
		stats.Success = 1
	}

	p.IndexSummary(stats)
	return nil
}
