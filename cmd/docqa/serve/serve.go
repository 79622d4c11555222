// Package servecmder provides the serve command that runs the question
// answering API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/api"
	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/pipeline"
)

type serveCommander struct {
	listen        string
	collection    string
	vectorProv    string
	vectorTarget  string
	embedProv     string
	embedTarget   string
	embedModel    string
	topK          int
	llmOrder      string
	eventProvider string
	logFile       string

	v      *viper.Viper
	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagCollection,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagTopK,
	config.FlagLLMOrder,
	config.FlagEventsProvider,
	config.FlagLogFile,
}

const serveLongDesc string = `Run the docqa API server.

The server selects the first language model in llm.order whose credential
is set, then answers questions over HTTP:
  POST /ask      {"question": "...", "history": [{"user": "...", "assistant": "..."}]}
  GET  /search   ?query=...&top_k=5
  GET  /ping
  ANY  /mcp      MCP tools ask_docs and search_docs

Startup fails when no language model credential is configured.

Examples:
  docqa serve
  docqa serve --listen :9000 --llm-order groq,ollama
  GROQ_API_KEY=gsk-... docqa serve --vector-store-provider sqlite --vector-store-target docqa.db
  docqa serve --log-file ~/.docqa/serve.log`

const serveShortDesc string = "Run the docqa API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.v, err = cmdutil.Viper(cmd, serveFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, closeLog, err := cmdutil.TeeLogger(cmd, os.Stdout, cmder.v.GetString("server.log_file"))
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			cmder.logger = l
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embedProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMOrder, &cmder.llmOrder)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &cmder.eventProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.logFile)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := pipeline.New(ctx, c.v, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			c.logger.Warn("closing pipeline", "error", err)
		}
	}()

	server, err := api.NewServer(api.Config{
		ListenAddr:     c.v.GetString("server.listen"),
		RequestTimeout: c.v.GetDuration("server.request_timeout"),
	}, api.Deps{
		Generator: p.Generator,
		Retriever: p.Retriever,
		Composer:  p.Composer,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
