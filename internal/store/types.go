// Package store is the persistence layer for the book library: an exclusive
// cross-process lock on the store directory, a SQLite metadata database, and
// an HNSW vector index over embedded text chunks.
package store

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Document is one extracted book ready for indexing. It is produced by the
// extract package and consumed once by Upsert; the store never mutates it.
type Document struct {
	Title    string
	Author   string
	Filename string
	Format   string // lowercased extension, e.g. ".epub"
	Text     string // cleaned full text
	Length   int    // len(Text) at extraction time
}

// DocumentMeta is the per-book metadata carried alongside every chunk.
type DocumentMeta struct {
	Title    string
	Author   string
	Filename string
	Format   string
	Length   int
}

// Chunk is the persisted unit of embedding and retrieval. Identity is
// (DocumentID, Seq); chunk IDs are stable across re-runs so re-indexing a
// document replaces rather than duplicates.
type Chunk struct {
	ID         string
	DocumentID string
	Seq        int
	Total      int
	Text       string
}

// SimilarityHit is one raw result of a vector query, before fusion collapses
// multiple hits per book into a single ranked result.
type SimilarityHit struct {
	ChunkID  string
	Meta     DocumentMeta
	Text     string
	Distance float32 // cosine distance; similarity = 1 - Distance
}

// Stats summarizes store contents.
type Stats struct {
	DocumentCount int
	ChunkCount    int
}

// DocumentID derives the stable store identity of a book from its filename.
func DocumentID(filename string) string {
	sum := md5.Sum([]byte(filename))
	return hex.EncodeToString(sum[:])
}

// ChunkID builds the identity of chunk seq within document docID. The
// "_chunk_<n>" suffix is what search fusion strips to recover the document.
func ChunkID(docID string, seq int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, seq)
}
