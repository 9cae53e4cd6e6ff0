package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookText builds deterministic prose with n numbered sentences.
func bookText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence number %d of the test book rambles on for a while before it stops. ", i)
	}
	return strings.TrimSpace(b.String())
}

func TestSplit_EmptyText(t *testing.T) {
	assert.Empty(t, Split("", DefaultOptions()))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	text := "A short book. It has only two sentences."
	require.Less(t, len(text), DefaultSize)

	chunks := Split(text, DefaultOptions())

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_ExactSizeSingleChunk(t *testing.T) {
	text := strings.Repeat("a", DefaultSize)

	chunks := Split(text, DefaultOptions())

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_PrefersSentenceBoundaries(t *testing.T) {
	text := bookText(100)

	chunks := Split(text, DefaultOptions())
	require.Greater(t, len(chunks), 1)

	// Every non-final chunk should end at a sentence terminator because the
	// generated sentences are short relative to the window size.
	for i, c := range chunks[:len(chunks)-1] {
		last := c[len(c)-1]
		assert.Contains(t, ".?!", string(last), "chunk %d ends mid-sentence: %q", i, c[len(c)-40:])
	}
}

func TestSplit_ChunkSizeBound(t *testing.T) {
	chunks := Split(bookText(200), DefaultOptions())

	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), DefaultSize, "chunk %d exceeds window size", i)
		assert.NotEmpty(t, c, "chunk %d is empty", i)
	}
}

func TestSplit_NoContentDropped(t *testing.T) {
	text := bookText(150)

	chunks := Split(text, DefaultOptions())
	require.Greater(t, len(chunks), 1)

	// Reconstruct by appending only the non-overlapping remainder of each
	// chunk. The result must reproduce the original text.
	rebuilt := chunks[0]
	for _, c := range chunks[1:] {
		rebuilt = mergeOverlapping(rebuilt, c)
	}

	assert.Equal(t, normalize(text), normalize(rebuilt))
}

func TestSplit_OverlapSharedBetweenChunks(t *testing.T) {
	text := bookText(150)

	chunks := Split(text, DefaultOptions())
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		// Each chunk's head must appear in its predecessor: that is the
		// shared overlap region.
		head := chunks[i][:40]
		assert.Contains(t, chunks[i-1], head, "chunk %d does not overlap its predecessor", i)
	}
}

func TestSplit_ForwardProgressWhenOverlapExceedsSize(t *testing.T) {
	text := strings.Repeat("x", 500)

	chunks := Split(text, Options{Size: 100, Overlap: 100})

	// Must terminate and cover the text; step degrades to one character.
	assert.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("x", 100), chunks[0])
}

func TestSplit_TailNeverDuplicated(t *testing.T) {
	// Text slightly longer than one window: the tail must appear once.
	text := bookText(20)
	require.Greater(t, len(text), DefaultSize)

	chunks := Split(text, DefaultOptions())

	tail := chunks[len(chunks)-1]
	seen := 0
	for _, c := range chunks {
		if c == tail {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
}

func TestSplit_CyrillicTextStaysValidUTF8(t *testing.T) {
	// Window arithmetic is in characters; with two-byte Cyrillic runes a
	// byte-based cut would land mid-rune and corrupt most chunks.
	text := strings.Repeat("Мы долго шли по степи, и ветер выл над нами всю ночь. ", 60)

	chunks := Split(text, DefaultOptions())
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, len([]rune(c)), DefaultSize, "chunk %d exceeds the window in characters", i)
	}

	// Sentence-boundary shrinking applies to multi-byte prose too.
	for i, c := range chunks[:len(chunks)-1] {
		runes := []rune(c)
		assert.Equal(t, '.', runes[len(runes)-1], "chunk %d ends mid-sentence", i)
	}
}

func TestSplit_CJKTextStaysValidUTF8(t *testing.T) {
	// No spaced sentence terminators at all: every chunk is a hard cut, and
	// every cut must still land on a character boundary.
	text := strings.Repeat("春は曙やうやう白くなりゆく山際は少し明かりて紫だちたる雲の細くたなびきたる", 40)

	chunks := Split(text, DefaultOptions())
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
		assert.NotEmpty(t, c)
	}
}

// mergeOverlapping appends next to acc, skipping the longest suffix of acc
// that prefixes next.
func mergeOverlapping(acc, next string) string {
	max := len(next)
	if len(acc) < max {
		max = len(acc)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(acc, next[:n]) {
			return acc + next[n:]
		}
	}
	return acc + next
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
