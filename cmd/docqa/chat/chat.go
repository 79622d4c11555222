// Package chatcmder provides the chat command for an interactive
// conversation about the documentation.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/composer"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/dotdir"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("docqa> ")
)

// maxTurns bounds the history sent with each question.
const maxTurns = 10

type chatCommander struct {
	apiTarget string
	configDir string
	reset     bool
	raw       bool

	v      *viper.Viper
	ddm    *dotdir.Manager
	logger *slog.Logger
}

var chatFlags = []string{
	config.FlagCollection,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagTopK,
	config.FlagLLMOrder,
}

const chatLongDesc string = `Start an interactive conversation about the documentation.

Each question is sent with the previous turns so that follow-ups such as
"and on mainnet?" are understood. The conversation is saved to
.docqa/session.json and resumed by the next "docqa chat" for the same
collection. Use --reset or type /reset to start over.

Commands:
  /reset   Forget the conversation
  /exit    Quit (Ctrl+D also works)

Examples:
  docqa chat
  docqa chat --api-target http://localhost:8000
  docqa chat --reset`

const chatShortDesc string = "Interactive conversation about the documentation"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{ddm: dotdir.NewManager()}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString(cmdutil.FlagConfigDir)
			cmder.v, err = cmdutil.Viper(cmd, chatFlags)
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

	var collection, vectorProv, vectorTarget, embedProv, embedTarget, embedModel, llmOrder string
	var topK int
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &embedProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &embedModel)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMOrder, &llmOrder)
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", "", "Chat through a running docqa server instead of answering locally")
	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "Start a new conversation")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print answers without markdown rendering")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	collection := c.v.GetString("vector_store.collection")

	if c.reset {
		if err := c.ddm.ClearSession(c.configDir); err != nil {
			return err
		}
	}

	session, err := c.ddm.LoadSession(c.configDir)
	if err != nil {
		return fmt.Errorf("loading chat session: %w", err)
	}
	if session == nil || session.Collection != collection {
		session = &dotdir.ChatSession{Collection: collection}
	}

	asker, closeFn, err := cmdutil.NewAsker(ctx, c.v, c.apiTarget, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	fmt.Println()
	if len(session.Turns) > 0 {
		fmt.Printf("  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d turns)", len(session.Turns))),
		)
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Collection:"), cliui.NameStyle.Render(collection))
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /reset to start over, /exit or Ctrl+D to quit."))

	return c.loop(ctx, os.Stdin, os.Stdout, asker, session)
}

// loop reads questions from in until EOF or /exit, saving the session after
// every answered turn.
func (c *chatCommander) loop(ctx context.Context, in io.Reader, out io.Writer, asker cmdutil.Asker, session *dotdir.ChatSession) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(out)
			return nil
		case "/reset":
			session.Turns = nil
			if err := c.ddm.ClearSession(c.configDir); err != nil {
				return err
			}
			fmt.Fprintf(out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue
		}

		answer, err := asker.Ask(ctx, input, recent(session.Turns))
		if err != nil {
			fmt.Fprintf(out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		fmt.Fprintln(out, assistantPrompt)
		cmdutil.PrintAnswer(out, answer, !c.raw, true)

		// Degraded answers are shown but not remembered.
		if strings.HasPrefix(answer.Answer, "❌") {
			continue
		}

		session.Turns = append(session.Turns, composer.Turn{User: input, Assistant: answer.Answer})
		if err := c.ddm.SaveSession(session, c.configDir); err != nil {
			c.logger.Warn("failed to save chat session", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

func recent(turns []composer.Turn) []composer.Turn {
	if len(turns) > maxTurns {
		return turns[len(turns)-maxTurns:]
	}
	return turns
}
