// Package search turns raw per-chunk similarity hits into one ranked
// result per book.
package search

import (
	"sort"
	"strings"

	"github.com/Aman-CERP/librarian/internal/store"
)

// OverFetchFactor is how many raw hits callers should request per final
// result. Multiple chunks of the same book compete for the same slots, so
// fusion needs headroom to still fill the limit after deduplication.
const OverFetchFactor = 3

// ExcerptLimit caps the best-match excerpt length in runes.
const ExcerptLimit = 300

// MatchedChunk is one chunk-level hit kept inside a ranked book for
// downstream inspection.
type MatchedChunk struct {
	Text  string
	Score float64
}

// RankedBook is one book in the fused result list.
type RankedBook struct {
	Title     string
	Author    string
	Filename  string
	Format    string
	Length    int
	Relevance float64 // best chunk similarity, 1 - distance
	BestMatch string  // excerpt of the highest-scoring chunk
	Chunks    []MatchedChunk
}

// Fuse groups hits by book, scores each book by its best-matching chunk,
// and returns at most limit books ordered by descending relevance. The
// best-match policy is deliberate: one highly relevant passage should
// surface a book even when its other chunks are weak. Ties keep first-seen
// order, so the output is stable under reordering of equal-scored input.
// An empty hit list yields an empty result list.
func Fuse(hits []store.SimilarityHit, limit int) []RankedBook {
	if len(hits) == 0 || limit <= 0 {
		return []RankedBook{}
	}

	var order []string
	groups := make(map[string]*RankedBook, len(hits))

	for _, hit := range hits {
		docID := documentID(hit.ChunkID)
		score := 1 - float64(hit.Distance)

		book, ok := groups[docID]
		if !ok {
			book = &RankedBook{
				Title:     hit.Meta.Title,
				Author:    hit.Meta.Author,
				Filename:  hit.Meta.Filename,
				Format:    hit.Meta.Format,
				Length:    hit.Meta.Length,
				Relevance: score,
				BestMatch: excerpt(hit.Text),
			}
			groups[docID] = book
			order = append(order, docID)
		}

		book.Chunks = append(book.Chunks, MatchedChunk{Text: hit.Text, Score: score})

		if score > book.Relevance {
			book.Relevance = score
			book.BestMatch = excerpt(hit.Text)
		}
	}

	books := make([]RankedBook, 0, len(order))
	for _, id := range order {
		books = append(books, *groups[id])
	}

	sort.SliceStable(books, func(i, j int) bool {
		return books[i].Relevance > books[j].Relevance
	})

	if len(books) > limit {
		books = books[:limit]
	}
	return books
}

// documentID strips the trailing "_chunk_<n>" suffix from a chunk ID. A
// chunk ID without the suffix maps to itself.
func documentID(chunkID string) string {
	if i := strings.LastIndex(chunkID, "_chunk_"); i >= 0 {
		return chunkID[:i]
	}
	return chunkID
}

// excerpt truncates text to ExcerptLimit runes, marking the cut with an
// ellipsis.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= ExcerptLimit {
		return text
	}
	return string(runes[:ExcerptLimit]) + "..."
}
