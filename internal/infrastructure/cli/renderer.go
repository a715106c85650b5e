package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/doeshing/shellgate/internal/domain"
)

// Renderer prints orchestrator replies. Colors only appear when out is a terminal.
type Renderer struct {
	out     io.Writer
	prompt  lipgloss.Style
	pending lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
}

// NewRenderer builds styles bound to out's color profile.
func NewRenderer(out io.Writer) *Renderer {
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out:     out,
		prompt:  r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		pending: r.NewStyle().Foreground(lipgloss.Color("11")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("10")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("9")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Prompt prints the input marker for the given state.
func (r *Renderer) Prompt(state domain.SessionState, target string) {
	marker := fmt.Sprintf("%s> ", target)
	if state == domain.StateAwaitingConfirmation {
		marker = fmt.Sprintf("%s [yes/no]> ", target)
	}
	fmt.Fprint(r.out, r.prompt.Render(marker))
}

// Reply prints one orchestrator reply.
func (r *Renderer) Reply(reply domain.Reply) {
	style := r.muted
	switch {
	case reply.State == domain.StateAwaitingConfirmation:
		style = r.pending
	case len(reply.Results) > 0 && reply.Results[len(reply.Results)-1].Success:
		style = r.ok
	case len(reply.Results) > 0:
		style = r.failed
	}
	if len(reply.Results) == 0 && reply.State == domain.StateIdle {
		fmt.Fprintln(r.out, reply.Text)
		return
	}
	fmt.Fprintln(r.out, style.Render(strings.TrimRight(reply.Text, "\n")))
}

// Notice prints a secondary line.
func (r *Renderer) Notice(format string, args ...interface{}) {
	fmt.Fprintln(r.out, r.muted.Render(fmt.Sprintf(format, args...)))
}
