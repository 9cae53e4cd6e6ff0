// Package chunk splits extracted book text into overlapping windows
// suitable for embedding and retrieval.
package chunk

import "strings"

// Default chunking parameters. 1000 characters with 200 of overlap keeps
// enough context in each window for the embedder while letting adjacent
// chunks share sentence boundaries.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Options configures the chunker.
type Options struct {
	// Size is the target chunk length in characters.
	Size int
	// Overlap is the number of characters shared between consecutive chunks.
	Overlap int
}

// DefaultOptions returns the standard chunking configuration.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Split breaks text into overlapping chunks.
//
// The text is scanned left to right in windows of opts.Size characters.
// All window arithmetic happens in rune index space, so multi-byte text
// (Cyrillic and CJK books in particular) never gets a chunk boundary in
// the middle of a character. A window that does not reach the end of the
// text is shrunk to end just after the last sentence terminator found in
// its back half, so chunks avoid splitting mid-sentence when a natural
// break exists nearby. The next window starts Overlap characters before
// the previous end, bounded so the scan always makes forward progress
// even when Overlap >= Size. Each chunk is whitespace-trimmed. Empty
// input yields no chunks; input shorter than Size yields exactly one
// chunk.
func Split(text string, opts Options) []string {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = DefaultOverlap
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		// end deliberately stays unclamped: advancing from the nominal
		// window end pushes start past the text length once the tail has
		// been emitted, so the final chunk is never repeated.
		end := start + opts.Size

		var window []rune
		if end < len(runes) {
			window = runes[start:end]
			// Shrink to the last sentence boundary in the back half of
			// the window, if there is one. The final window keeps the
			// whole tail.
			if cut := lastSentenceEnd(window); cut > opts.Size/2 {
				window = window[:cut+1]
				end = start + cut + 1
			}
		} else {
			window = runes[start:]
		}

		chunks = append(chunks, strings.TrimSpace(string(window)))

		next := end - opts.Overlap
		if next <= start {
			// Guarantees termination when Overlap >= Size.
			next = start + 1
		}
		start = next
	}

	return chunks
}

// lastSentenceEnd returns the rune index of the terminator character of
// the last sentence boundary in window, or -1 if none is present. The
// trailing space distinguishes "Mr." from end of sentence often enough
// for book prose.
func lastSentenceEnd(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		if window[i+1] != ' ' {
			continue
		}
		switch window[i] {
		case '.', '?', '!':
			return i
		}
	}
	return -1
}
