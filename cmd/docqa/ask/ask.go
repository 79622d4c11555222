// Package askcmder provides the ask command for one-shot questions.
package askcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	"github.com/papercomputeco/docqa/pkg/config"
)

type askCommander struct {
	question   string
	apiTarget  string
	collection string
	topK       int
	llmOrder   string
	raw        bool
	noSources  bool

	v      *viper.Viper
	logger *slog.Logger
}

var askFlags = []string{
	config.FlagCollection,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagTopK,
	config.FlagLLMOrder,
}

const askLongDesc string = `Ask a single question about the documentation.

The answer is rendered as markdown when printing to a terminal, followed by
the chunks it was grounded on. Without --api-target the question is answered
in-process with the configured vector store and language model.

Examples:
  docqa ask "How do I install the Garden SDK?"
  docqa ask "Which chains are supported?" --api-target http://localhost:8000
  docqa ask "What is a 1click order?" --raw --no-sources`

const askShortDesc string = "Ask a question about the documentation"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.v, err = cmdutil.Viper(cmd, askFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = strings.TrimSpace(strings.Join(args, " "))
			if cmder.question == "" {
				return errors.New("question must not be empty")
			}

			cmder.logger = cmdutil.Logger(cmd, os.Stderr)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, cmd.OutOrStdout())
		},
	}

	var vectorProv, vectorTarget, embedProv, embedTarget, embedModel string
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &embedProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &embedModel)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMOrder, &cmder.llmOrder)
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", "", "Ask a running docqa server instead of answering locally")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer markdown without rendering")
	cmd.Flags().BoolVar(&cmder.noSources, "no-sources", false, "Do not print the source chunks")

	return cmd
}

func (c *askCommander) run(ctx context.Context, out io.Writer) error {
	asker, closeFn, err := cmdutil.NewAsker(ctx, c.v, c.apiTarget, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	answer, err := asker.Ask(ctx, c.question, nil)
	if err != nil {
		return fmt.Errorf("asking question: %w", err)
	}

	fmt.Fprintln(out)
	cmdutil.PrintAnswer(out, answer, !c.raw, !c.noSources)
	return nil
}
