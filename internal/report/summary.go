// Package report renders solve results for people: a styled terminal summary
// and a run report written as YAML, or as TOML when the path ends in .toml.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lox/mdpplanner/internal/mdp"
	"github.com/lox/mdpplanner/internal/planner"
)

type styles struct {
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	warn   lipgloss.Style
	box    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")),
		label: r.NewStyle().
			Foreground(lipgloss.Color("12")).
			Width(12),
		value: r.NewStyle().
			Foreground(lipgloss.Color("14")),
		warn: r.NewStyle().
			Foreground(lipgloss.Color("11")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1),
	}
}

// WriteSummary draws a boxed overview of a solve to w. With noColor the
// output is plain ASCII regardless of the terminal.
func WriteSummary(w io.Writer, m *mdp.Model, res *planner.Result, noColor bool) error {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	st := newStyles(r)

	method := string(res.Method)
	if res.Method != planner.MethodIterative && string(res.Method) != res.Requested.String() {
		method = fmt.Sprintf("%s (requested %s)", res.Method, res.Requested)
	}

	rows := [][2]string{
		{"run", res.RunID},
		{"model", fmt.Sprintf("%d states, %d actions, %s, discount %g", m.NumStates, m.NumActions, m.Kind, m.Discount)},
		{"method", method},
		{"iterations", fmt.Sprint(res.Iterations)},
		{"duration", res.Duration.String()},
	}
	lo, hi := valueRange(res.Values, m)
	rows = append(rows, [2]string{"values", fmt.Sprintf("%.4f .. %.4f", lo, hi)})

	lines := []string{st.header.Render("MDP planner")}
	for _, row := range rows {
		lines = append(lines, st.label.Render(row[0])+st.value.Render(row[1]))
	}
	if res.FellBack {
		lines = append(lines, st.warn.Render("singular policy system, solved by linear program"))
	}
	if !res.Converged {
		lines = append(lines, st.warn.Render("evaluation did not converge, values are partial"))
	}

	_, err := fmt.Fprintln(w, st.box.Render(strings.Join(lines, "\n")))
	return err
}

// valueRange is the min and max over non-terminal states, or zeros when
// every state is terminal.
func valueRange(values []float64, m *mdp.Model) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for s, v := range values {
		if m.IsTerminal(s) {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}
