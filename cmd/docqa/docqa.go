// Package docqacmder is the root docqa command.
package docqacmder

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/docqa/cmd/docqa/ask"
	chatcmder "github.com/papercomputeco/docqa/cmd/docqa/chat"
	chunkcmder "github.com/papercomputeco/docqa/cmd/docqa/chunk"
	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	configcmder "github.com/papercomputeco/docqa/cmd/docqa/config"
	crawlcmder "github.com/papercomputeco/docqa/cmd/docqa/crawl"
	indexcmder "github.com/papercomputeco/docqa/cmd/docqa/index"
	servecmder "github.com/papercomputeco/docqa/cmd/docqa/serve"
	versioncmder "github.com/papercomputeco/docqa/cmd/version"
)

const docqaLongDesc string = `docqa answers questions about the Garden documentation.

Build the index once, then serve or ask:
  docqa crawl          Fetch the documentation pages into one file
  docqa chunk          Split the documentation file into chunks
  docqa index          Embed the chunks into the vector store
  docqa serve          Run the question answering API
  docqa ask "<q>"      Ask a single question from the terminal
  docqa chat           Start an interactive conversation`

const docqaShortDesc string = "docqa - Documentation question answering"

func NewDocqaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docqa",
		Short:         docqaShortDesc,
		Long:          docqaLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// A .env file in the working directory is optional.
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP(cmdutil.FlagDebug, "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool(cmdutil.FlagPretty, true, "Colorized log output")
	cmd.PersistentFlags().Bool(cmdutil.FlagJSON, false, "JSON log output")
	cmd.PersistentFlags().String(cmdutil.FlagConfigDir, "", "Override the .docqa/ config directory")

	cmd.AddCommand(crawlcmder.NewCrawlCmd())
	cmd.AddCommand(chunkcmder.NewChunkCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
