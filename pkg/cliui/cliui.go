// Package cliui provides terminal helpers (spinners, styles, markdown
// rendering) for docqa CLI commands.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/papercomputeco/docqa/pkg/utils"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")

	StepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	NameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// sourcePreview bounds the characters shown per source line.
const sourcePreview = 96

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})
	var mu sync.Mutex

	go func() {
		defer close(stopped)
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
// On failure the raw content is returned with the error.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// WriteSources prints one numbered, single-line preview per source.
func WriteSources(w io.Writer, sources []string) {
	if len(sources) == 0 {
		return
	}

	fmt.Fprintf(w, "  %s\n", KeyStyle.Render("Sources:"))
	for i, src := range sources {
		preview := utils.Truncate(utils.Collapse(src), sourcePreview)
		fmt.Fprintf(w, "  %s %s\n",
			DimStyle.Render(fmt.Sprintf("[%d]", i+1)),
			ValueStyle.Render(preview),
		)
	}
	fmt.Fprintln(w)
}
