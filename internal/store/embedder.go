package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"
)

// EmbedderDimensions is the vector width of the built-in hash embedder.
const EmbedderDimensions = 256

// Embedder turns text into a fixed-width vector. The store treats the
// embedding model as opaque; any implementation with stable output works.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// Hash-vector weights: whole words carry most of the signal, character
// trigrams smooth over inflection and typos.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// stopWords are high-frequency English words that carry no retrieval signal
// for book prose.
var stopWords = map[string]bool{
	"the": true, "and": true, "of": true, "to": true, "a": true,
	"in": true, "is": true, "it": true, "that": true, "was": true,
	"he": true, "she": true, "for": true, "on": true, "as": true,
	"with": true, "his": true, "her": true, "they": true, "at": true,
	"be": true, "this": true, "had": true, "not": true, "are": true,
	"but": true, "from": true, "or": true, "an": true, "by": true,
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// HashEmbedder produces deterministic embeddings by hashing tokens and
// character trigrams into a fixed-width vector. It needs no network, no
// model download, and gives the same vector for the same text on every
// run, which is what makes re-indexing idempotent end to end.
type HashEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// NewHashEmbedder creates the built-in deterministic embedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

// Embed generates the embedding for a single text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, EmbedderDimensions), nil
	}

	vector := make([]float32, EmbedderDimensions)

	for _, token := range tokenize(trimmed) {
		vector[hashToIndex(token)] += tokenWeight
	}
	for _, gram := range ngrams(strings.ToLower(trimmed), ngramSize) {
		vector[hashToIndex(gram)] += ngramWeight
	}

	return normalizeVector(vector), nil
}

// Dimensions returns the embedding width.
func (e *HashEmbedder) Dimensions() int {
	return EmbedderDimensions
}

// ModelName identifies this embedder for cache keying.
func (e *HashEmbedder) ModelName() string {
	return "hash-256"
}

// Close marks the embedder unusable.
func (e *HashEmbedder) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

// tokenize lowercases and splits text into alphanumeric words, dropping
// stop words.
func tokenize(text string) []string {
	words := tokenPattern.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if !stopWords[lower] {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// ngrams returns the sliding character n-grams of text.
func ngrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	grams := make([]string, 0, len(text)-n+1)
	for i := 0; i+n <= len(text); i++ {
		grams = append(grams, text[i:i+n])
	}
	return grams
}

func hashToIndex(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % EmbedderDimensions)
}

// normalizeVector scales v to unit length. Zero vectors pass through.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
