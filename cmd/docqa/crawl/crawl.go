// Package crawlcmder provides the crawl command that fetches the
// documentation pages into one document file.
package crawlcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/crawler"
)

type crawlCommander struct {
	output string
	urls   []string

	v      *viper.Viper
	logger *slog.Logger
}

const crawlLongDesc string = `Fetch the documentation pages into one document file.

Each page is preceded by a "--- Content from <url> ---" banner. Pages that
fail to download are logged and skipped. HTML pages are converted to
markdown.

Examples:
  docqa crawl
  docqa crawl --output docs.md
  docqa crawl --url https://docs.garden.finance/developers/overview.md`

const crawlShortDesc string = "Fetch the documentation pages"

func NewCrawlCmd() *cobra.Command {
	cmder := &crawlCommander{}

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: crawlShortDesc,
		Long:  crawlLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.v, err = cmdutil.Viper(cmd, []string{config.FlagCrawlOutput})
			return err
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

	config.AddStringFlag(cmd, config.Flags, config.FlagCrawlOutput, &cmder.output)
	cmd.Flags().StringSliceVar(&cmder.urls, "url", nil, "Page to fetch, repeatable (default: the Garden developer docs)")

	return cmd
}

func (c *crawlCommander) run(ctx context.Context) error {
	cr := crawler.New(crawler.Config{
		URLs:              c.urls,
		Concurrency:       c.v.GetInt("crawler.concurrency"),
		RequestsPerSecond: c.v.GetFloat64("crawler.requests_per_second"),
	}, c.logger)

	var docs []crawler.Document
	err := cliui.Step(os.Stderr, "Fetching documentation", func() error {
		var err error
		docs, err = cr.Crawl(ctx)
		return err
	})
	if err != nil {
		return err
	}

	output := c.v.GetString("crawler.output")
	err = cliui.Step(os.Stderr, fmt.Sprintf("Writing %d pages to %s", len(docs), output), func() error {
		return writeDocuments(output, docs)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n  %s Saved all content to %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(output),
	)
	return nil
}

func writeDocuments(path string, docs []crawler.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := crawler.WriteFile(w, docs); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
