package mdp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrMissingHeader is returned when a required keyword never appears.
	ErrMissingHeader = errors.New("missing required keyword")
	// ErrMalformed is returned for lines that cannot be parsed.
	ErrMalformed = errors.New("malformed mdp line")
)

// noTerminals on an end line stands for an empty terminal set.
const noTerminals = -1

type rawTransition struct {
	line         int
	s, a, next   int
	reward, prob float64
}

// Load reads an MDP description from disk.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads the MDP text format. Unknown keywords and blank lines are
// skipped. numStates, numActions and discount are required and never
// defaulted; a missing mdptype means a continuing MDP.
func Parse(r io.Reader) (*Model, error) {
	states, actions := -1, -1
	kind := KindContinuing
	var (
		discount      float64
		haveDiscount  bool
		transitions   []rawTransition
		terminals     []int
		terminalLines []int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "numStates":
			n, err := intField(fields, 1, lineNo)
			if err != nil {
				return nil, err
			}
			states = n
		case "numActions":
			n, err := intField(fields, 1, lineNo)
			if err != nil {
				return nil, err
			}
			actions = n
		case "discount":
			if len(fields) < 2 {
				return nil, malformed(lineNo, "discount needs a value")
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, malformed(lineNo, err.Error())
			}
			discount, haveDiscount = v, true
		case "mdptype":
			if len(fields) < 2 {
				return nil, malformed(lineNo, "mdptype needs a value")
			}
			k, err := ParseKind(fields[1])
			if err != nil {
				return nil, malformed(lineNo, err.Error())
			}
			kind = k
		case "end":
			for i := 1; i < len(fields); i++ {
				s, err := intField(fields, i, lineNo)
				if err != nil {
					return nil, err
				}
				if s == noTerminals {
					continue
				}
				terminals = append(terminals, s)
				terminalLines = append(terminalLines, lineNo)
			}
		case "transition":
			t, err := parseTransition(fields, lineNo)
			if err != nil {
				return nil, err
			}
			transitions = append(transitions, t)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	switch {
	case states < 0:
		return nil, fmt.Errorf("%w: numStates", ErrMissingHeader)
	case actions < 0:
		return nil, fmt.Errorf("%w: numActions", ErrMissingHeader)
	case !haveDiscount:
		return nil, fmt.Errorf("%w: discount", ErrMissingHeader)
	}

	m, err := NewModel(states, actions, discount, kind)
	if err != nil {
		return nil, err
	}
	for _, t := range transitions {
		if err := m.AddTransition(t.s, t.a, t.next, t.reward, t.prob); err != nil {
			return nil, malformed(t.line, err.Error())
		}
	}
	for i, s := range terminals {
		if err := m.MarkTerminal(s); err != nil {
			return nil, malformed(terminalLines[i], err.Error())
		}
	}
	return m, nil
}

// parseTransition reads "transition s a s' r p". Ids are read as floats first
// so encoders that print "3.0" still load, but must be integral.
func parseTransition(fields []string, lineNo int) (rawTransition, error) {
	if len(fields) < 6 {
		return rawTransition{}, malformed(lineNo, "transition needs s a s' reward probability")
	}
	var vals [5]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return rawTransition{}, malformed(lineNo, err.Error())
		}
		if i < 3 && (math.IsInf(v, 0) || math.Trunc(v) != v) {
			return rawTransition{}, malformed(lineNo, fmt.Sprintf("id %s is not an integer", fields[i+1]))
		}
		vals[i] = v
	}
	return rawTransition{
		line:   lineNo,
		s:      int(vals[0]),
		a:      int(vals[1]),
		next:   int(vals[2]),
		reward: vals[3],
		prob:   vals[4],
	}, nil
}

func intField(fields []string, i, lineNo int) (int, error) {
	if len(fields) <= i {
		return 0, malformed(lineNo, fmt.Sprintf("%s needs a value", fields[0]))
	}
	n, err := strconv.Atoi(fields[i])
	if err != nil {
		return 0, malformed(lineNo, err.Error())
	}
	return n, nil
}

func malformed(lineNo int, msg string) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, lineNo, msg)
}

// Write serialises m in the MDP text format, transitions ordered by state then
// action in recording order.
func Write(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "numStates %d\n", m.NumStates)
	fmt.Fprintf(bw, "numActions %d\n", m.NumActions)
	for s := 0; s < m.NumStates; s++ {
		for a := 0; a < m.NumActions; a++ {
			for _, o := range m.Outcomes(s, a) {
				fmt.Fprintf(bw, "transition %d %d %d %s %s\n", s, a, o.Next, formatFloat(o.Reward), formatFloat(o.Probability))
			}
		}
	}
	bw.WriteString("end")
	for _, s := range m.Terminals() {
		fmt.Fprintf(bw, " %d", s)
	}
	bw.WriteString("\n")
	fmt.Fprintf(bw, "mdptype %s\n", m.Kind)
	fmt.Fprintf(bw, "discount %s\n", formatFloat(m.Discount))
	return bw.Flush()
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
