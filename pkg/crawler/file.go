package crawler

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// bannerFormat precedes every page in a document file.
const bannerFormat = "\n\n--- Content from %s ---\n\n"

var bannerRe = regexp.MustCompile(`\n\n--- Content from (\S+) ---\n\n`)

// WriteFile writes docs as one document file, each page preceded by its
// banner.
func WriteFile(w io.Writer, docs []Document) error {
	for _, d := range docs {
		if _, err := fmt.Fprintf(w, bannerFormat, d.URL); err != nil {
			return fmt.Errorf("writing banner for %s: %w", d.URL, err)
		}
		if _, err := io.WriteString(w, d.Content); err != nil {
			return fmt.Errorf("writing content for %s: %w", d.URL, err)
		}
	}
	return nil
}

// ParseDocuments splits a document file back into pages. Text before the
// first banner is returned as a document with an empty URL when it is not
// blank.
func ParseDocuments(text string) []Document {
	matches := bannerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		if text == "" {
			return []Document{}
		}
		return []Document{{Content: text}}
	}

	docs := make([]Document, 0, len(matches)+1)
	if lead := text[:matches[0][0]]; strings.TrimSpace(lead) != "" {
		docs = append(docs, Document{Content: lead})
	}

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		docs = append(docs, Document{
			URL:     text[m[2]:m[3]],
			Content: text[m[1]:end],
		})
	}
	return docs
}
