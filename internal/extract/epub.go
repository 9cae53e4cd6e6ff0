package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/Aman-CERP/librarian/internal/store"
)

// opfMetadata is the Dublin Core slice of an EPUB package document.
type opfMetadata struct {
	Title   string `xml:"metadata>title"`
	Creator string `xml:"metadata>creator"`
}

// epub extracts an EPUB: Dublin Core metadata from the OPF package file
// and prose from the XHTML content documents in archive order, which
// approximates the spine.
func epub(path string) (store.Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return store.Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()

	var (
		title  string
		author string
		text   strings.Builder
	)

	for _, f := range r.File {
		name := strings.ToLower(f.Name)
		switch {
		case strings.HasSuffix(name, ".opf"):
			meta, err := readOPF(f)
			if err != nil {
				continue // metadata is best-effort; content still indexes
			}
			title = meta.Title
			author = meta.Creator
		case strings.HasSuffix(name, ".xhtml"), strings.HasSuffix(name, ".html"), strings.HasSuffix(name, ".htm"):
			body, err := readHTMLText(f)
			if err != nil {
				continue
			}
			text.WriteString(body)
			text.WriteString("\n")
		}
	}

	return newDocument(path, ".epub", title, author, text.String()), nil
}

func readOPF(f *zip.File) (opfMetadata, error) {
	rc, err := f.Open()
	if err != nil {
		return opfMetadata{}, err
	}
	defer rc.Close()

	var meta opfMetadata
	if err := xml.NewDecoder(rc).Decode(&meta); err != nil {
		return opfMetadata{}, err
	}
	return meta, nil
}

// readHTMLText parses one content document and concatenates its text
// nodes, skipping script and style subtrees.
func readHTMLText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	doc, err := html.Parse(rc)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String(), nil
}
