// Package indexcmder provides the index command that embeds the chunk file
// into the vector store.
package indexcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/indexer"
	"github.com/papercomputeco/docqa/pkg/pipeline"
)

type indexCommander struct {
	input        string
	collection   string
	vectorProv   string
	vectorTarget string
	embedProv    string
	embedTarget  string
	embedModel   string
	embedDims    uint
	workers      uint
	batchSize    int
	watch        bool

	v      *viper.Viper
	logger *slog.Logger
}

var indexFlags = []string{
	config.FlagCollection,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
}

// watchDebounce collapses the burst of events a single save produces.
const watchDebounce = 500 * time.Millisecond

const indexLongDesc string = `Embed the chunk file into the vector store.

Every chunk is embedded and upserted under a stable ID, so indexing the same
file again updates the existing records instead of duplicating them. The
collection is created on first use with the embedding dimension.

With --watch the command keeps running and re-indexes whenever the chunk
file changes.

Examples:
  docqa index
  docqa index --input doc_chunks.txt --collection garden_docs
  docqa index --vector-store-provider sqlite --vector-store-target docqa.db --watch`

const indexShortDesc string = "Embed the chunks into the vector store"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cmder.v, err = cmdutil.Viper(cmd, indexFlags); err != nil {
				return err
			}
			// The index input is the chunk command's output.
			return cmder.v.BindPFlag("chunking.output", cmd.Flags().Lookup("input"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = cmdutil.Logger(cmd, os.Stderr)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&cmder.input, "input", "i", config.NewDefaultConfig().Chunking.Output, "Chunk file to index")

	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embedProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embedDims)
	cmd.Flags().UintVar(&cmder.workers, "workers", 3, "Concurrent embedding workers")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 32, "Chunks embedded per request")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Re-index when the chunk file changes")

	return cmd
}

func (c *indexCommander) run(ctx context.Context) error {
	p, err := pipeline.NewIndexing(ctx, c.v, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			c.logger.Warn("closing pipeline", "error", err)
		}
	}()

	cfg := p.IndexerConfig()
	cfg.NumWorkers = c.workers
	cfg.BatchSize = c.batchSize

	input := c.v.GetString("chunking.output")
	if err := c.indexFile(ctx, cfg, input); err != nil {
		return err
	}

	if !c.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "  %s\n\n", cliui.DimStyle.Render("Watching "+input+" for changes. Ctrl+C to stop."))
	return Watch(ctx, input, watchDebounce, func() error {
		if err := c.indexFile(ctx, cfg, input); err != nil {
			// A half-written file is common while saving; keep watching.
			c.logger.Error("re-index failed", "input", input, "error", err)
		}
		return nil
	}, c.logger)
}

func (c *indexCommander) indexFile(ctx context.Context, cfg *indexer.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	chunks, err := chunker.ReadFile(f)
	f.Close()
	if err != nil {
		return err
	}

	var n int
	err = cliui.Step(os.Stderr, fmt.Sprintf("Indexing %d chunks into %s", len(chunks), cfg.Collection), func() error {
		var err error
		n, err = indexer.Index(ctx, cfg, chunks)
		return err
	})

	c.logger.Info("indexed chunk file",
		"input", path,
		"collection", cfg.Collection,
		"chunks", len(chunks),
		"indexed", n,
	)
	return err
}
