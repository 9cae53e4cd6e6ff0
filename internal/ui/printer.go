// Package ui renders search results, indexing progress, and store stats
// for the terminal. Color is used only when the output is a real TTY and
// NO_COLOR is unset.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/librarian/internal/async"
	"github.com/Aman-CERP/librarian/internal/index"
	"github.com/Aman-CERP/librarian/internal/search"
	"github.com/Aman-CERP/librarian/internal/store"
)

// Printer writes human-facing output. Write errors on console output are
// ignored.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter builds a printer for w, auto-detecting color support.
func NewPrinter(w io.Writer) *Printer {
	noColor := DetectNoColor() || !IsTTY(w)
	return &Printer{out: w, styles: GetStyles(noColor)}
}

// NewPlainPrinter builds an uncolored printer, for tests and pipes.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{out: w, styles: NoColorStyles()}
}

// Results renders a ranked result list for a query.
func (p *Printer) Results(query string, books []search.RankedBook) {
	if len(books) == 0 {
		fmt.Fprintf(p.out, "No matches for %q. Try /index to add books first.\n", query)
		return
	}

	fmt.Fprintf(p.out, "Found %d book(s) for %q:\n\n", len(books), query)
	for i, b := range books {
		fmt.Fprintf(p.out, "%d. %s %s %s\n",
			i+1,
			p.styles.Title.Render(b.Title),
			p.styles.Author.Render("by "+b.Author),
			p.styles.Score.Render(fmt.Sprintf("(relevance %.2f)", b.Relevance)))
		if b.BestMatch != "" {
			fmt.Fprintf(p.out, "   %s\n", p.styles.Excerpt.Render(b.BestMatch))
		}
		fmt.Fprintf(p.out, "   %s\n\n",
			p.styles.Dim.Render(fmt.Sprintf("%s · %s · %d chars", b.Filename, b.Format, b.Length)))
	}
}

// Stats renders store counters and the indexed book list.
func (p *Printer) Stats(stats store.Stats, docs []store.DocumentMeta) {
	fmt.Fprintf(p.out, "%s %d book(s), %d chunk(s)\n",
		p.styles.Label.Render("Library:"), stats.DocumentCount, stats.ChunkCount)
	for _, d := range docs {
		fmt.Fprintf(p.out, "  %s %s\n",
			p.styles.Title.Render(d.Title),
			p.styles.Dim.Render(fmt.Sprintf("(%s, %s)", d.Author, d.Filename)))
	}
}

// IndexSummary renders the counters of a finished indexing run.
func (p *Printer) IndexSummary(stats index.Stats) {
	line := fmt.Sprintf("Indexed %d book(s), %d failed, %d skipped",
		stats.Success, stats.Failed, stats.Skipped)
	switch {
	case stats.Failed > 0:
		fmt.Fprintln(p.out, p.styles.Warning.Render(line))
	default:
		fmt.Fprintln(p.out, p.styles.Success.Render(line))
	}
}

// Event renders one background-indexing status event.
func (p *Printer) Event(ev async.StatusEvent) {
	switch ev.Phase {
	case async.PhaseStarting:
		fmt.Fprintln(p.out, p.styles.Label.Render("[indexing] ")+ev.Message)
	case async.PhaseRunning:
		fmt.Fprintln(p.out, p.styles.Dim.Render("[indexing] ")+ev.Message)
	case async.PhaseCompleted:
		fmt.Fprintln(p.out, p.styles.Success.Render("[indexing] done: ")+summarize(ev.Stats))
	case async.PhaseInterrupted:
		fmt.Fprintln(p.out, p.styles.Warning.Render("[indexing] interrupted: ")+summarize(ev.Stats))
	case async.PhaseError:
		fmt.Fprintln(p.out, p.styles.Error.Render("[indexing] failed: ")+ev.Err)
	}
}

// Error renders a command failure.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.out, p.styles.Error.Render("Error: ")+err.Error())
}

// Info renders a neutral informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.out, msg)
}

func summarize(stats index.Stats) string {
	return fmt.Sprintf("%d indexed, %d failed, %d skipped",
		stats.Success, stats.Failed, stats.Skipped)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor honors the NO_COLOR convention.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
