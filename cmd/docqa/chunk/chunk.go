// Package chunkcmder provides the chunk command that splits the crawled
// documentation file into the chunk file.
package chunkcmder

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/crawler"
)

type chunkCommander struct {
	input   string
	output  string
	size    int
	overlap int

	v      *viper.Viper
	logger *slog.Logger
}

var chunkFlags = []string{
	config.FlagChunkInput,
	config.FlagChunkOutput,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
}

const chunkLongDesc string = `Split the documentation file into overlapping chunks.

Each page of the input is split on paragraph, line, sentence and word
boundaries into chunks of at most --chunk-size characters, with
--chunk-overlap characters carried over between neighbors. The chunks are
written as "---Chunk <n>---" sections ready for "docqa index".

Examples:
  docqa chunk
  docqa chunk --input docs.md --output chunks.txt --chunk-size 800`

const chunkShortDesc string = "Split the documentation into chunks"

func NewChunkCmd() *cobra.Command {
	cmder := &chunkCommander{}

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: chunkShortDesc,
		Long:  chunkLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.v, err = cmdutil.Viper(cmd, chunkFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = cmdutil.Logger(cmd, os.Stderr)
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagChunkInput, &cmder.input)
	config.AddStringFlag(cmd, config.Flags, config.FlagChunkOutput, &cmder.output)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.size)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.overlap)

	return cmd
}

func (c *chunkCommander) run() error {
	splitter, err := chunker.New(
		chunker.WithChunkSize(c.v.GetInt("chunking.size")),
		chunker.WithChunkOverlap(c.v.GetInt("chunking.overlap")),
	)
	if err != nil {
		return err
	}

	input := c.v.GetString("chunking.input")
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	chunks := SplitDocuments(splitter, string(data))
	c.logger.Debug("split documentation",
		"input", input,
		"chunks", len(chunks),
		"chunk_size", splitter.ChunkSize(),
		"chunk_overlap", splitter.ChunkOverlap(),
	)

	output := c.v.GetString("chunking.output")
	if err := writeChunks(output, chunks); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n  %s Saved %d chunks to %s\n\n",
		cliui.SuccessMark,
		len(chunks),
		cliui.ValueStyle.Render(output),
	)
	return nil
}

// SplitDocuments splits each page of a document file on its own and numbers
// the chunks in file order.
func SplitDocuments(splitter *chunker.Splitter, text string) []chunker.Chunk {
	chunks := []chunker.Chunk{}
	for _, doc := range crawler.ParseDocuments(text) {
		for _, chunk := range splitter.SplitDocument(doc.URL, doc.Content) {
			chunk.Index = len(chunks)
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func writeChunks(path string, chunks []chunker.Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := chunker.WriteFile(w, chunks); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
