package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("books/novel.epub"))
	assert.True(t, Supported("NOVEL.FB2"))
	assert.True(t, Supported("notes.md"))
	assert.False(t, Supported("archive.mobi"))
	assert.False(t, Supported("noext"))
}

func TestFile_UnsupportedFormat(t *testing.T) {
	_, err := File("book.mobi")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFile_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moby-dick.txt")
	content := "Call me Ishmael.  Some years ago\n\nnever mind how long precisely."
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, err := File(path)
	require.NoError(t, err)

	assert.Equal(t, "moby-dick", doc.Title)
	assert.Equal(t, "Unknown", doc.Author)
	assert.Equal(t, "moby-dick.txt", doc.Filename)
	assert.Equal(t, ".txt", doc.Format)
	assert.Equal(t, "Call me Ishmael. Some years ago never mind how long precisely.", doc.Text)
	assert.Equal(t, len(doc.Text), doc.Length)
}

func TestFile_MissingFile(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
}

func TestFile_FB2(t *testing.T) {
	const fb2Content = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook>
  <description>
    <title-info>
      <author><first-name>Leo</first-name><last-name>Tolstoy</last-name></author>
      <book-title>War and Peace</book-title>
    </title-info>
  </description>
  <body>
    <section><p>Well, Prince, so Genoa and Lucca are now family estates.</p></section>
  </body>
  <body name="notes">
    <section><p>footnote text that must not be indexed</p></section>
  </body>
</FictionBook>`

	path := filepath.Join(t.TempDir(), "war-and-peace.fb2")
	require.NoError(t, os.WriteFile(path, []byte(fb2Content), 0o644))

	doc, err := File(path)
	require.NoError(t, err)

	assert.Equal(t, "War and Peace", doc.Title)
	assert.Equal(t, "Leo Tolstoy", doc.Author)
	assert.Equal(t, ".fb2", doc.Format)
	assert.Contains(t, doc.Text, "Genoa and Lucca")
	assert.NotContains(t, doc.Text, "footnote")
	assert.NotContains(t, doc.Text, "War and Peace", "metadata must not leak into body text")
}

func TestFile_FB2_MissingMetadata(t *testing.T) {
	const fb2Content = `<?xml version="1.0"?>
<FictionBook><body><p>Some text here.</p></body></FictionBook>`

	path := filepath.Join(t.TempDir(), "anonymous.fb2")
	require.NoError(t, os.WriteFile(path, []byte(fb2Content), 0o644))

	doc, err := File(path)
	require.NoError(t, err)

	assert.Equal(t, "anonymous", doc.Title)
	assert.Equal(t, "Unknown", doc.Author)
	assert.Equal(t, "Some text here.", doc.Text)
}

func TestFile_FB2_Windows1251Encoding(t *testing.T) {
	// Body is the word "Тест" in windows-1251 single-byte encoding; the
	// extractor must decode it to UTF-8, not pass the raw bytes through.
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="windows-1251"?>` + "\n")
	buf.WriteString("<FictionBook><body><p>")
	buf.Write([]byte{0xD2, 0xE5, 0xF1, 0xF2})
	buf.WriteString("</p></body></FictionBook>")

	path := filepath.Join(t.TempDir(), "legacy.fb2")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	doc, err := File(path)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(doc.Text))
	assert.Contains(t, doc.Text, "Тест")
}

func writeEPUB(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	files := map[string]string{
		"mimetype": "application/epub+zip",
		"content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <metadata><dc:title>Dracula</dc:title><dc:creator>Bram Stoker</dc:creator></metadata>
</package>`,
		"chapter1.xhtml": `<html><head><style>p{}</style></head><body><p>Jonathan Harker's Journal.</p></body></html>`,
		"chapter2.xhtml": `<html><body><p>Left Munich at 8:35 P. M.</p><script>ignored()</script></body></html>`,
	}
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestFile_EPUB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dracula.epub")
	writeEPUB(t, path)

	doc, err := File(path)
	require.NoError(t, err)

	assert.Equal(t, "Dracula", doc.Title)
	assert.Equal(t, "Bram Stoker", doc.Author)
	assert.Equal(t, ".epub", doc.Format)
	assert.Contains(t, doc.Text, "Jonathan Harker")
	assert.Contains(t, doc.Text, "Left Munich")
	assert.NotContains(t, doc.Text, "ignored()")
	assert.NotContains(t, doc.Text, "p{}")
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "a  b\t c\n\nd", "a b c d"},
		{"drops page numbers", "end of page\n42\nnext page", "end of page next page"},
		{"trims", "  padded  ", "padded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}
