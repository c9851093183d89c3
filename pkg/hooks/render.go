// ABOUTME: Exit-protocol output: reasons and diagnostics on stderr, optional JSON on stdout
// ABOUTME: Labels are styled with lipgloss only when stderr is a terminal

package hooks

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jwriter"
	"golang.org/x/term"
)

// renderer writes the host-facing text. Plain mode writes reasons verbatim,
// which is what the host feeds back to the agent.
type renderer struct {
	w      io.Writer
	styled bool

	blockLabel lipgloss.Style
	errorLabel lipgloss.Style
	noteLabel  lipgloss.Style
}

func newRenderer(w io.Writer) *renderer {
	r := &renderer{w: w, styled: isTerminal(w)}
	if r.styled {
		lr := lipgloss.NewRenderer(w)
		r.blockLabel = lr.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
		r.errorLabel = lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
		r.noteLabel = lr.NewStyle().Faint(true)
	}
	return r
}

// isTerminal reports whether w is a file descriptor attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// block writes the block reason the host hands back to the agent.
func (r *renderer) block(reason string) {
	if r.styled {
		fmt.Fprintf(r.w, "%s %s\n", r.blockLabel.Render("blocked:"), reason)
		return
	}
	fmt.Fprintln(r.w, reason)
}

// note writes an approve/neutral reason; it is informational only.
func (r *renderer) note(reason string) {
	if r.styled {
		fmt.Fprintf(r.w, "%s %s\n", r.noteLabel.Render("note:"), reason)
		return
	}
	fmt.Fprintln(r.w, reason)
}

// fatal writes a diagnostic such as "hook error: ..." that must never be
// mistaken for a policy block.
func (r *renderer) fatal(label, msg string) {
	if r.styled {
		fmt.Fprintf(r.w, "%s %s\n", r.errorLabel.Render(label+":"), msg)
		return
	}
	fmt.Fprintf(r.w, "%s: %s\n", label, msg)
}

// jsonOutput is the stdout document the host understands in JSON mode:
// {"decision":"block","reason":"..."}; neutral renders as {}.
type jsonOutput struct {
	Decision string
	Reason   string
}

// MarshalEasyJSON implements easyjson.Marshaler.
func (o jsonOutput) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	first := true
	if o.Decision != "" {
		w.RawString(`"decision":`)
		w.String(o.Decision)
		first = false
	}
	if o.Reason != "" {
		if !first {
			w.RawByte(',')
		}
		w.RawString(`"reason":`)
		w.String(o.Reason)
	}
	w.RawByte('}')
}

func writeJSON(w io.Writer, res Result) error {
	out := jsonOutput{Decision: res.Decision.Wire()}
	if res.Decision != DecisionNeutral {
		out.Reason = res.Reason
	}
	data, err := easyjson.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding hook output: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing hook output: %w", err)
	}
	return nil
}
