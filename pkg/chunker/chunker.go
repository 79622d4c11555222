// Package chunker splits documentation text into overlapping chunks and
// reads and writes the flat chunk file used between the chunk and index
// steps.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default number of characters a chunk shares
	// with the chunk before it.
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order, from the largest semantic boundary
// (paragraph) down to the raw character split ("").
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ErrInvalidChunkConfig is returned when the size and overlap settings
// cannot produce chunks.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// Chunk is a contiguous slice of a source document.
type Chunk struct {
	// Text is the chunk content, including the overlap carried over from the
	// previous chunk.
	Text string `json:"text"`

	// Index is the position of the chunk in the split sequence.
	Index int `json:"index"`

	// Source identifies the document the chunk came from (usually a URL).
	Source string `json:"source,omitempty"`
}

// Splitter is a recursive character splitter with a fixed configuration.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the target chunk length in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets the number of characters shared between adjacent
// chunks.
func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.chunkOverlap = overlap
	}
}

// WithSeparators overrides the separator priority list. A trailing "" is
// appended when missing so that oversized text can always be split.
func WithSeparators(separators ...string) Option {
	return func(s *Splitter) {
		seps := make([]string, 0, len(separators)+1)
		seps = append(seps, separators...)
		if len(seps) == 0 || seps[len(seps)-1] != "" {
			seps = append(seps, "")
		}
		s.separators = seps
	}
}

// New creates a Splitter. It returns ErrInvalidChunkConfig unless
// 0 <= overlap < size.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkConfig, s.chunkSize)
	}
	if s.chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidChunkConfig, s.chunkOverlap)
	}
	if s.chunkOverlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrInvalidChunkConfig, s.chunkOverlap, s.chunkSize)
	}

	return s, nil
}

// Split is a convenience wrapper around New(...).Split(text).
func Split(text string, chunkSize, chunkOverlap int) ([]Chunk, error) {
	s, err := New(WithChunkSize(chunkSize), WithChunkOverlap(chunkOverlap))
	if err != nil {
		return nil, err
	}
	return s.Split(text), nil
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the configured chunk overlap.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split splits text into chunks with no source attached.
func (s *Splitter) Split(text string) []Chunk {
	return s.SplitDocument("", text)
}

// SplitDocument splits text into chunks and tags each chunk with source.
//
// Every chunk after the first starts with the last chunkOverlap characters
// of the chunk before it, and the remaining "novel" part of each chunk is
// what the recursive split produced. Dropping the overlap prefix from every
// chunk after the first and concatenating gives back text unchanged.
func (s *Splitter) SplitDocument(source, text string) []Chunk {
	if text == "" {
		return []Chunk{}
	}

	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []Chunk{{Text: text, Index: 0, Source: source}}
	}

	// Pieces must fit into a chunk that already carries the overlap.
	pieces := s.pieces(text, s.separators, s.chunkSize-s.chunkOverlap)

	var (
		chunks  []Chunk
		novel   strings.Builder
		novelN  int
		overlap string
	)

	emit := func() {
		chunk := Chunk{
			Text:   overlap + novel.String(),
			Index:  len(chunks),
			Source: source,
		}
		chunks = append(chunks, chunk)
		overlap = tail(chunk.Text, s.chunkOverlap)
		novel.Reset()
		novelN = 0
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)

		budget := s.chunkSize
		if len(chunks) > 0 {
			budget = s.chunkSize - s.chunkOverlap
		}

		if novelN > 0 && novelN+n > budget {
			emit()
		}

		novel.WriteString(piece)
		novelN += n
	}

	if novelN > 0 {
		emit()
	}

	return chunks
}

// pieces recursively breaks text into non-empty parts of at most limit
// characters. Separators stay attached to the end of the part they close, so
// concatenating the parts gives back text.
func (s *Splitter) pieces(text string, separators []string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	sepIdx := len(separators) - 1
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			sepIdx = i
			break
		}
	}

	sep := ""
	if sepIdx >= 0 {
		sep = separators[sepIdx]
	}
	if sep == "" {
		return splitRunes(text, limit)
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= limit {
			out = append(out, part)
			continue
		}
		out = append(out, s.pieces(part, separators[sepIdx+1:], limit)...)
	}

	return out
}

// splitRunes is the fallback when no separator applies.
func splitRunes(text string, limit int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

// tail returns the last n characters of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
