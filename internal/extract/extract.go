// Package extract pulls text and metadata out of ebook files. Extraction
// is a thin adapter in front of the store: each extractor produces one
// store.Document or an error, and a failure for one file never affects
// another.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Aman-CERP/librarian/internal/store"
)

// ErrUnsupportedFormat is returned for files whose extension has no
// extractor.
var ErrUnsupportedFormat = errors.New("unsupported book format")

// SupportedFormats is the fixed set of extensions the indexer recognizes.
var SupportedFormats = map[string]bool{
	".txt":  true,
	".md":   true,
	".fb2":  true,
	".epub": true,
}

// Supported reports whether path has a recognized book extension.
func Supported(path string) bool {
	return SupportedFormats[strings.ToLower(filepath.Ext(path))]
}

// File extracts a document from path, dispatching on the extension.
func File(path string) (store.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		return plainText(path, ext)
	case ".fb2":
		return fb2(path)
	case ".epub":
		return epub(path)
	default:
		return store.Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// plainText reads the whole file; the filename stem stands in for a title.
func plainText(path, ext string) (store.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return newDocument(path, ext, stem(path), "Unknown", string(data)), nil
}

// newDocument assembles a Document with cleaned text and defaults for
// missing metadata.
func newDocument(path, ext, title, author, text string) store.Document {
	if title == "" {
		title = stem(path)
	}
	if author == "" {
		author = "Unknown"
	}
	cleaned := CleanText(text)
	return store.Document{
		Title:    title,
		Author:   author,
		Filename: filepath.Base(path),
		Format:   ext,
		Text:     cleaned,
		Length:   len(cleaned),
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var (
	pageNumberPattern = regexp.MustCompile(`\n\d+\n`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText normalizes extracted text: lone page-number lines are dropped
// and whitespace runs collapse to single spaces.
func CleanText(text string) string {
	text = pageNumberPattern.ReplaceAllString(text, "\n")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
