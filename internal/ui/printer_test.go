package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/librarian/internal/async"
	"github.com/Aman-CERP/librarian/internal/index"
	"github.com/Aman-CERP/librarian/internal/search"
	"github.com/Aman-CERP/librarian/internal/store"
)

func TestPrinter_Results(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Results("whales", []search.RankedBook{
		{
			Title:     "Moby-Dick",
			Author:    "Herman Melville",
			Filename:  "moby.txt",
			Format:    ".txt",
			Length:    1200,
			Relevance: 0.87,
			BestMatch: "Call me Ishmael.",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Found 1 book(s)")
	assert.Contains(t, out, "Moby-Dick")
	assert.Contains(t, out, "by Herman Melville")
	assert.Contains(t, out, "relevance 0.87")
	assert.Contains(t, out, "Call me Ishmael.")
	assert.Contains(t, out, "moby.txt")
}

func TestPrinter_ResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).Results("nothing", nil)
	assert.Contains(t, buf.String(), "No matches")
}

func TestPrinter_Stats(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Stats(store.Stats{DocumentCount: 2, ChunkCount: 14}, []store.DocumentMeta{
		{Title: "A", Author: "X", Filename: "a.txt"},
		{Title: "B", Author: "Y", Filename: "b.txt"},
	})

	out := buf.String()
	assert.Contains(t, out, "2 book(s), 14 chunk(s)")
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "b.txt")
}

func TestPrinter_IndexSummary(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).IndexSummary(index.Stats{Success: 3, Failed: 1, Skipped: 2})
	assert.Contains(t, buf.String(), "Indexed 3 book(s), 1 failed, 2 skipped")
}

func TestPrinter_Event(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Event(async.StatusEvent{Phase: async.PhaseStarting, Message: "Indexing /books"})
	p.Event(async.StatusEvent{Phase: async.PhaseCompleted, Stats: index.Stats{Success: 4}})
	p.Event(async.StatusEvent{Phase: async.PhaseError, Err: "store locked"})

	out := buf.String()
	assert.Contains(t, out, "Indexing /books")
	assert.Contains(t, out, "done: 4 indexed")
	assert.Contains(t, out, "failed: store locked")
}

func TestIsTTY_NonFileWriter(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}
