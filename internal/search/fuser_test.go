package search

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/librarian/internal/store"
)

func hit(book string, seq int, distance float32) store.SimilarityHit {
	return store.SimilarityHit{
		ChunkID: store.ChunkID(book, seq),
		Meta: store.DocumentMeta{
			Title:    "Title " + book,
			Author:   "Author " + book,
			Filename: book + ".epub",
			Format:   ".epub",
			Length:   1000,
		},
		Text:     fmt.Sprintf("text of %s chunk %d", book, seq),
		Distance: distance,
	}
}

func TestFuse_Empty(t *testing.T) {
	assert.Empty(t, Fuse(nil, 5))
	assert.Empty(t, Fuse([]store.SimilarityHit{}, 5))
}

func TestFuse_GroupsChunksPerBook(t *testing.T) {
	hits := []store.SimilarityHit{
		hit("aaa", 0, 0.30),
		hit("bbb", 2, 0.10),
		hit("aaa", 4, 0.20),
		hit("aaa", 7, 0.50),
	}

	books := Fuse(hits, 10)

	require.Len(t, books, 2)
	assert.Equal(t, "Title bbb", books[0].Title)
	assert.Equal(t, "Title aaa", books[1].Title)
	assert.Len(t, books[1].Chunks, 3)
}

func TestFuse_BestMatchPolicy(t *testing.T) {
	// Book aaa's best chunk (distance 0.20) beats its first-seen chunk.
	hits := []store.SimilarityHit{
		hit("aaa", 0, 0.60),
		hit("aaa", 3, 0.20),
		hit("aaa", 5, 0.40),
	}

	books := Fuse(hits, 5)

	require.Len(t, books, 1)
	assert.InDelta(t, 0.80, books[0].Relevance, 1e-6)
	assert.Equal(t, "text of aaa chunk 3", books[0].BestMatch)
}

func TestFuse_ExcerptTruncation(t *testing.T) {
	h := hit("aaa", 0, 0.1)
	h.Text = strings.Repeat("x", ExcerptLimit+50)

	books := Fuse([]store.SimilarityHit{h}, 1)

	require.Len(t, books, 1)
	assert.Equal(t, strings.Repeat("x", ExcerptLimit)+"...", books[0].BestMatch)
	// The full chunk text is still retained for inspection.
	assert.Equal(t, h.Text, books[0].Chunks[0].Text)
}

func TestFuse_LimitRespected(t *testing.T) {
	var hits []store.SimilarityHit
	for i := 0; i < 12; i++ {
		hits = append(hits, hit(fmt.Sprintf("book%02d", i), 0, float32(i)*0.05))
	}

	books := Fuse(hits, 4)

	require.Len(t, books, 4)
	// Lowest distances first.
	assert.Equal(t, "Title book00", books[0].Title)
	assert.Equal(t, "Title book03", books[3].Title)
}

func TestFuse_StableUnderInputReordering(t *testing.T) {
	var hits []store.SimilarityHit
	for book := 0; book < 6; book++ {
		for seq := 0; seq < 3; seq++ {
			// Distinct distances everywhere so ranking is fully determined.
			d := float32(book)*0.11 + float32(seq)*0.013
			hits = append(hits, hit(fmt.Sprintf("book%d", book), seq, d))
		}
	}

	want := Fuse(hits, 4)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]store.SimilarityHit, len(hits))
		copy(shuffled, hits)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := Fuse(shuffled, 4)

		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Title, got[i].Title, "trial %d rank %d", trial, i)
			assert.InDelta(t, want[i].Relevance, got[i].Relevance, 1e-9)
			assert.Equal(t, want[i].BestMatch, got[i].BestMatch)
		}
	}
}

func TestFuse_TiesKeepFirstSeenOrder(t *testing.T) {
	hits := []store.SimilarityHit{
		hit("zzz", 0, 0.25),
		hit("aaa", 0, 0.25),
	}

	books := Fuse(hits, 5)

	require.Len(t, books, 2)
	assert.Equal(t, "Title zzz", books[0].Title)
	assert.Equal(t, "Title aaa", books[1].Title)
}

func TestDocumentID_StripsChunkSuffix(t *testing.T) {
	assert.Equal(t, "abc123", documentID("abc123_chunk_0"))
	assert.Equal(t, "abc123", documentID("abc123_chunk_42"))
	assert.Equal(t, "no-suffix", documentID("no-suffix"))
	// Only the trailing suffix is stripped.
	assert.Equal(t, "a_chunk_1", documentID("a_chunk_1_chunk_2"))
}
