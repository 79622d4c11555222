package chunker

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// headerPrefix starts every chunk header line, e.g. "---Chunk 12---".
const headerPrefix = "---Chunk"

// WriteFile writes chunks in the flat chunk file format: a "---Chunk <n>---"
// header (1-based), the raw chunk text, then a blank line.
func WriteFile(w io.Writer, chunks []Chunk) error {
	bw := bufio.NewWriter(w)
	for i, chunk := range chunks {
		if _, err := fmt.Fprintf(bw, "%s %d---\n%s\n\n", headerPrefix, i+1, chunk.Text); err != nil {
			return fmt.Errorf("writing chunk %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

// ReadFile parses a chunk file. Text between headers is trimmed of
// surrounding whitespace and empty chunks are dropped. Returned chunks are
// re-indexed from 0 in file order.
func ReadFile(r io.Reader) ([]Chunk, error) {
	chunks := []Chunk{}

	var current strings.Builder

	flush := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text == "" {
			return
		}
		chunks = append(chunks, Chunk{Text: text, Index: len(chunks)})
	}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if strings.HasPrefix(strings.TrimSpace(line), headerPrefix) {
				flush()
			} else {
				current.WriteString(line)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading chunk file: %w", err)
		}
	}
	flush()

	return chunks, nil
}
