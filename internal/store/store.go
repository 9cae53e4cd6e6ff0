package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/librarian/internal/chunk"
)

// On-disk layout inside the store directory.
const (
	metadataFileName = "library.db"
	vectorFileName   = "vectors.hnsw"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// ErrEmptyDocument is returned when a document has no text to index.
var ErrEmptyDocument = errors.New("document has no content")

// Options configures Open.
type Options struct {
	// LockTimeout bounds the wait for the store lock; <= 0 waits forever.
	LockTimeout time.Duration
	// OnLockWait is invoked once if the lock is contended.
	OnLockWait func()
	// Chunking overrides the default chunk size and overlap.
	Chunking chunk.Options
	// Embedder overrides the built-in hash embedder.
	Embedder Embedder
	// EmbeddingCacheSize bounds the query-embedding LRU cache.
	EmbeddingCacheSize int
}

// Store owns one on-disk library: the directory lock, the SQLite metadata
// database, and the HNSW vector index. Exactly one process holds a given
// store open at a time; Open blocks (or times out) until the lock is free.
type Store struct {
	dir      string
	lock     *Lock
	meta     *metadataDB
	vectors  *VectorIndex
	embedder Embedder
	chunking chunk.Options
	closed   bool
}

// Open acquires the store lock and loads the persistent state. The context
// bounds lock acquisition only: cancelling it aborts a contended wait, while
// an already-open store is unaffected. Every failure path after acquisition
// releases the lock before returning.
func Open(ctx context.Context, dir string, opts Options) (*Store, error) {
	if opts.Chunking.Size <= 0 {
		opts.Chunking = chunk.DefaultOptions()
	}
	embedder := opts.Embedder
	if embedder == nil {
		embedder = NewHashEmbedder()
	}
	embedder = NewCachedEmbedder(embedder, opts.EmbeddingCacheSize)

	lock := NewLock(dir)
	lock.SetWaitNotify(opts.OnLockWait)
	if err := lock.AcquireContext(ctx, opts.LockTimeout); err != nil {
		return nil, err
	}

	meta, err := openMetadata(filepath.Join(dir, metadataFileName))
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	vectors := NewVectorIndex(embedder.Dimensions())
	if err := vectors.Load(filepath.Join(dir, vectorFileName)); err != nil {
		_ = meta.close()
		_ = lock.Release()
		return nil, err
	}

	slog.Debug("store opened",
		slog.String("dir", dir),
		slog.Int("vectors", vectors.Count()))

	return &Store{
		dir:      dir,
		lock:     lock,
		meta:     meta,
		vectors:  vectors,
		embedder: embedder,
		chunking: opts.Chunking,
	}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Upsert indexes one document: chunk, embed, and persist. Chunk IDs derive
// from the document ID and sequence index, so indexing the same book twice
// replaces its chunks instead of duplicating them. All chunks of a document
// are persisted before Upsert returns; a partially applied upsert after a
// crash is corrected by re-running it.
func (s *Store) Upsert(ctx context.Context, doc Document) error {
	if s.closed {
		return ErrClosed
	}

	spans := chunk.Split(doc.Text, s.chunking)
	if len(spans) == 0 {
		return ErrEmptyDocument
	}

	docID := DocumentID(doc.Filename)
	chunks := make([]Chunk, len(spans))
	for i, text := range spans {
		chunks[i] = Chunk{
			ID:         ChunkID(docID, i),
			DocumentID: docID,
			Seq:        i,
			Total:      len(spans),
			Text:       text,
		}
	}

	for _, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("embedding chunk %s: %w", c.ID, err)
		}
		if err := s.vectors.Add(c.ID, vec); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", c.ID, err)
		}
	}

	if err := s.meta.upsertDocument(doc, docID, chunks); err != nil {
		return err
	}

	slog.Info("document indexed",
		slog.String("title", doc.Title),
		slog.String("author", doc.Author),
		slog.Int("chunks", len(chunks)))
	return nil
}

// Query embeds text and returns up to k raw similarity hits, closest
// first. Callers that fuse per-book results should over-fetch; see the
// search package. An empty store yields an empty slice.
func (s *Store) Query(ctx context.Context, text string, k int) ([]SimilarityHit, error) {
	if s.closed {
		return nil, ErrClosed
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	raw, err := s.vectors.Search(vec, k)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(raw))
	for i, h := range raw {
		ids[i] = h.ID
	}
	rows, err := s.meta.chunkRows(ids)
	if err != nil {
		return nil, err
	}

	hits := make([]SimilarityHit, 0, len(raw))
	for _, h := range raw {
		hit, ok := rows[h.ID]
		if !ok {
			continue
		}
		hit.Distance = h.Distance
		hits = append(hits, hit)
	}
	return hits, nil
}

// IndexedDocuments lists every book in the store, sorted by filename.
func (s *Store) IndexedDocuments() ([]DocumentMeta, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.meta.documents()
}

// IsIndexed reports whether the book with the given filename is already in
// the store.
func (s *Store) IsIndexed(filename string) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	return s.meta.hasDocument(DocumentID(filename))
}

// Stats returns document and chunk counts.
func (s *Store) Stats() (Stats, error) {
	if s.closed {
		return Stats{}, ErrClosed
	}
	return s.meta.counts()
}

// Reset deletes all indexed data but keeps the store open and locked.
func (s *Store) Reset() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.meta.reset(); err != nil {
		return err
	}
	s.vectors = NewVectorIndex(s.embedder.Dimensions())
	return nil
}

// Close persists the vector index, closes the metadata database, and
// releases the store lock. It is idempotent and releases the lock on every
// path, even when persisting fails.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := s.vectors.Save(filepath.Join(s.dir, vectorFileName)); err != nil {
		firstErr = err
	}
	if err := s.meta.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.lock.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
