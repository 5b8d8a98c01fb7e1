package mdp

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const chainMDP = `numStates 2
numActions 1
transition 0 0 1 -1 1
end 1
mdptype episodic
discount 1.0
`

func TestParseChain(t *testing.T) {
	m, err := Parse(strings.NewReader(chainMDP))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.NumStates != 2 || m.NumActions != 1 {
		t.Fatalf("unexpected dims %dx%d", m.NumStates, m.NumActions)
	}
	if m.Kind != KindEpisodic {
		t.Fatalf("kind = %v, want episodic", m.Kind)
	}
	if m.Discount != 1 {
		t.Fatalf("discount = %v, want 1", m.Discount)
	}
	if !m.IsTerminal(1) || m.IsTerminal(0) {
		t.Fatalf("terminal set = %v, want [1]", m.Terminals())
	}
	out := m.Outcomes(0, 0)
	if len(out) != 1 || out[0] != (Outcome{Probability: 1, Next: 1, Reward: -1}) {
		t.Fatalf("outcomes = %+v", out)
	}
}

func TestParseMissingHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		keyword string
	}{
		{"states", "numActions 1\ndiscount 0.9\n", "numStates"},
		{"actions", "numStates 1\ndiscount 0.9\n", "numActions"},
		{"discount", "numStates 1\nnumActions 1\n", "discount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMissingHeader) {
				t.Fatalf("expected ErrMissingHeader, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.keyword) {
				t.Fatalf("error %q should name %s", err, tt.keyword)
			}
		})
	}
}

func TestParseIgnoresUnknownAndBlankLines(t *testing.T) {
	input := "\n# comment\nnumStates 1\nfoo bar baz\nnumActions 1\n\ntransition 0 0 0 -1 1\nend\ndiscount 0.9\n"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Kind != KindContinuing {
		t.Fatalf("missing mdptype should default to continuing, got %v", m.Kind)
	}
	if len(m.Terminals()) != 0 {
		t.Fatalf("empty end line should give no terminals, got %v", m.Terminals())
	}
}

func TestParseEndMinusOneMeansNoTerminals(t *testing.T) {
	input := "numStates 2\nnumActions 1\ntransition 0 0 1 -1 1\ntransition 1 0 0 -1 1\nend -1\ndiscount 0.9\n"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(m.Terminals()) != 0 {
		t.Fatalf("end -1 should give no terminals, got %v", m.Terminals())
	}

	m, err = Parse(strings.NewReader("numStates 3\nnumActions 1\nend -1 2\ndiscount 0.9\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := m.Terminals(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("terminals = %v, want [2]", got)
	}
}

func TestParseAcceptsIntegralFloatIds(t *testing.T) {
	input := "numStates 4\nnumActions 2\ntransition 3.0 1.0 2.0 -1 1\nend 2\ndiscount 0.9\n"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := m.Outcomes(3, 1)
	if len(out) != 1 || out[0].Next != 2 {
		t.Fatalf("outcomes(3, 1) = %v, want one outcome to state 2", out)
	}
}

func TestParseDuplicateTransitionsAccumulate(t *testing.T) {
	input := `numStates 2
numActions 1
transition 0 0 1 -1 0.25
transition 0 0 1 -1 0.25
transition 0 0 0 -1 0.5
end 1
discount 0.9
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := len(m.Outcomes(0, 0)); got != 3 {
		t.Fatalf("expected 3 recorded outcomes, got %d", got)
	}
	var toOne float64
	for _, o := range m.Outcomes(0, 0) {
		if o.Next == 1 {
			toOne += o.Probability
		}
	}
	if toOne != 0.5 {
		t.Fatalf("probability mass to state 1 = %v, want 0.5", toOne)
	}
	if err := m.ValidateProbabilities(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"state out of range", "numStates 1\nnumActions 1\ntransition 0 0 3 -1 1\ndiscount 0.9\n"},
		{"action out of range", "numStates 1\nnumActions 1\ntransition 0 2 0 -1 1\ndiscount 0.9\n"},
		{"terminal out of range", "numStates 1\nnumActions 1\nend 4\ndiscount 0.9\n"},
		{"negative terminal", "numStates 1\nnumActions 1\nend -2\ndiscount 0.9\n"},
		{"fractional state", "numStates 2\nnumActions 1\ntransition 0.7 0 1 -1 1\ndiscount 0.9\n"},
		{"fractional next state", "numStates 2\nnumActions 1\ntransition 0 0 1.5 -1 1\ndiscount 0.9\n"},
		{"infinite action", "numStates 2\nnumActions 1\ntransition 0 Inf 1 -1 1\ndiscount 0.9\n"},
		{"negative probability", "numStates 1\nnumActions 1\ntransition 0 0 0 -1 -0.5\ndiscount 0.9\n"},
		{"short transition", "numStates 1\nnumActions 1\ntransition 0 0 0\ndiscount 0.9\n"},
		{"bad number", "numStates x\nnumActions 1\ndiscount 0.9\n"},
		{"bad kind", "numStates 1\nnumActions 1\nmdptype forever\ndiscount 0.9\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestParseRejectsDiscountOutOfRange(t *testing.T) {
	for _, d := range []string{"0", "1.5", "-0.1"} {
		input := "numStates 1\nnumActions 1\ndiscount " + d + "\n"
		if _, err := Parse(strings.NewReader(input)); err == nil {
			t.Fatalf("discount %s should be rejected", d)
		}
	}
}

func TestValidateProbabilitiesReportsEveryPair(t *testing.T) {
	input := `numStates 2
numActions 2
transition 0 0 1 -1 0.7
transition 0 1 1 -1 1.2
transition 1 0 0 -1 1
discount 0.9
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = m.ValidateProbabilities()
	if !errors.Is(err, ErrProbabilitySum) {
		t.Fatalf("expected ErrProbabilitySum, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "state 0 action 0") || !strings.Contains(msg, "state 0 action 1") {
		t.Fatalf("error should list both pairs: %q", msg)
	}
	if strings.Contains(msg, "state 1 action 0") {
		t.Fatalf("valid pair reported: %q", msg)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	m, err := Parse(strings.NewReader(chainMDP))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "numStates 2\nnumActions 1\ntransition 0 0 1 -1.0 1.0\nend 1\nmdptype episodic\ndiscount 1.0\n"
	if buf.String() != want {
		t.Fatalf("write output:\n%s\nwant:\n%s", buf.String(), want)
	}

	again, err := Parse(&buf)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if again.TransitionCount() != m.TransitionCount() || again.Kind != m.Kind {
		t.Fatalf("round trip lost data")
	}
}

func TestLoadWrapsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.mdp")
	if err := os.WriteFile(path, []byte("numStates 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error mentioning %s, got %v", path, err)
	}
	if _, err := Load(filepath.Join(dir, "missing.mdp")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
