package cmdutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/papercomputeco/docqa/api/client"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/composer"
	"github.com/papercomputeco/docqa/pkg/pipeline"
)

// Asker answers a question given the conversation so far.
type Asker interface {
	Ask(ctx context.Context, question string, history []composer.Turn) (composer.Answer, error)
}

type localAsker struct {
	composer *composer.Composer
}

func (a *localAsker) Ask(ctx context.Context, question string, history []composer.Turn) (composer.Answer, error) {
	return a.composer.Answer(ctx, question, history), nil
}

// NewAsker returns an Asker backed by the API server at apiTarget, or by a
// local pipeline when apiTarget is empty. The returned func releases it.
func NewAsker(ctx context.Context, v *viper.Viper, apiTarget string, logger *slog.Logger) (Asker, func() error, error) {
	if apiTarget != "" {
		c, err := client.New(apiTarget, nil)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("asking remote server", "api_target", apiTarget)
		return c, func() error { return nil }, nil
	}

	p, err := pipeline.New(ctx, v, logger)
	if err != nil {
		return nil, nil, err
	}
	return &localAsker{composer: p.Composer}, p.Close, nil
}

// PrintAnswer writes the answer, rendered as markdown when w is a terminal
// and rich is set, followed by its sources.
func PrintAnswer(w io.Writer, answer composer.Answer, rich, sources bool) {
	text := answer.Answer
	if f, ok := w.(*os.File); ok && rich && term.IsTerminal(int(f.Fd())) {
		width := 80
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = min(cols-4, 120)
		}
		if rendered, err := cliui.RenderMarkdown(text, width); err == nil {
			text = rendered
		}
	}

	fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	fmt.Fprintln(w)

	if sources {
		cliui.WriteSources(w, answer.Sources)
	}
}
