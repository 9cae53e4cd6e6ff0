package extract

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/Aman-CERP/librarian/internal/store"
)

// fb2 extracts a FictionBook 2.0 file. Metadata lives under
// description/title-info; prose lives in the first body element (later
// bodies hold footnotes).
func fb2(path string) (store.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	// FB2 files in the wild declare all sorts of single-byte encodings,
	// windows-1251 above all. Decode them to UTF-8 instead of letting raw
	// bytes through as mojibake.
	dec.CharsetReader = charset.NewReaderLabel

	var (
		text       strings.Builder
		title      string
		firstName  string
		lastName   string
		stack      []string
		bodyDepth  int
		bodiesSeen int
	)

	inTitleInfo := func() bool {
		for _, name := range stack {
			if name == "title-info" {
				return true
			}
		}
		return false
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return store.Document{}, fmt.Errorf("parsing %s: %w", path, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if t.Name.Local == "body" {
				bodiesSeen++
				if bodiesSeen == 1 {
					bodyDepth = len(stack)
				}
			}
		case xml.EndElement:
			if len(stack) > 0 {
				if stack[len(stack)-1] == "body" && bodiesSeen == 1 && len(stack) == bodyDepth {
					bodyDepth = 0
				}
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			value := string(t)
			cur := ""
			if len(stack) > 0 {
				cur = stack[len(stack)-1]
			}
			switch {
			case bodiesSeen == 1 && bodyDepth > 0 && len(stack) >= bodyDepth:
				text.WriteString(value)
				text.WriteString(" ")
			case cur == "book-title" && inTitleInfo():
				title = strings.TrimSpace(value)
			case cur == "first-name" && inTitleInfo():
				firstName = strings.TrimSpace(value)
			case cur == "last-name" && inTitleInfo():
				lastName = strings.TrimSpace(value)
			}
		}
	}

	author := strings.TrimSpace(firstName + " " + lastName)
	return newDocument(path, ".fb2", title, author, text.String()), nil
}
