// Package index walks book files into the store: find, extract, chunk,
// upsert. One bad file never aborts a batch; failures are counted and the
// walk moves on.
package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Aman-CERP/librarian/internal/extract"
	"github.com/Aman-CERP/librarian/internal/store"
)

// Stats are the counters for one indexing run. Counters are monotonic
// during a run, so an interrupted run still reports everything persisted
// so far.
type Stats struct {
	Success int
	Failed  int
	Skipped int
}

// Progress is called after each file is handled during a directory run.
type Progress func(file string, done, total int)

// Runner indexes files into an open store. The store (and with it the
// store lock) is owned by the caller; the runner never closes it.
type Runner struct {
	store *store.Store

	// SkipIndexed short-circuits files whose document is already in the
	// store. Re-indexing is idempotent either way; skipping just saves
	// the extraction and embedding work on a re-scan.
	SkipIndexed bool

	// OnProgress, when set, observes per-file progress.
	OnProgress Progress
}

// NewRunner creates a runner over an open store. SkipIndexed defaults on.
func NewRunner(s *store.Store) *Runner {
	return &Runner{store: s, SkipIndexed: true}
}

// FindBooks returns all supported book files under dir, recursively,
// sorted by path. Unreadable subtrees are skipped rather than failing the
// scan.
func FindBooks(dir string) ([]string, error) {
	var books []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && extract.Supported(path) {
			books = append(books, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(books)
	return books, nil
}

// Directory indexes every supported book under dir. The context is checked
// once per document boundary: cancellation stops the walk early and
// returns the counters accumulated so far together with ctx.Err(), leaving
// already-indexed documents in place.
func (r *Runner) Directory(ctx context.Context, dir string) (Stats, error) {
	var stats Stats

	if _, err := os.Stat(dir); err != nil {
		return stats, fmt.Errorf("directory %s: %w", dir, err)
	}

	books, err := FindBooks(dir)
	if err != nil {
		return stats, err
	}

	slog.Info("indexing directory",
		slog.String("dir", dir),
		slog.Int("books", len(books)))

	for i, path := range books {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		r.indexOne(ctx, path, &stats)

		if r.OnProgress != nil {
			r.OnProgress(path, i+1, len(books))
		}
	}

	return stats, nil
}

// File indexes a single book. Unlike Directory, errors propagate: a single
// explicit file that fails is the whole job failing.
func (r *Runner) File(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file %s: %w", path, err)
	}
	if !extract.Supported(path) {
		return fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, filepath.Ext(path))
	}

	doc, err := extract.File(path)
	if err != nil {
		return err
	}
	return r.store.Upsert(ctx, doc)
}

// indexOne handles one file of a batch, mapping every failure to a
// counter.
func (r *Runner) indexOne(ctx context.Context, path string, stats *Stats) {
	if r.SkipIndexed {
		indexed, err := r.store.IsIndexed(filepath.Base(path))
		if err == nil && indexed {
			stats.Skipped++
			slog.Debug("already indexed, skipping", slog.String("path", path))
			return
		}
	}

	doc, err := extract.File(path)
	if err != nil {
		stats.Failed++
		slog.Warn("extraction failed",
			slog.String("path", path),
			slog.Any("error", err))
		return
	}

	if err := r.store.Upsert(ctx, doc); err != nil {
		stats.Failed++
		slog.Warn("upsert failed",
			slog.String("path", path),
			slog.Any("error", err))
		return
	}

	stats.Success++
}
