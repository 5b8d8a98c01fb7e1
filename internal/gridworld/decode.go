package gridworld

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// agentGlyphs maps the symbols that mark the agent to its orientation.
var agentGlyphs = map[string]Orientation{
	"^": Up,
	">": Right,
	"v": Down,
	"<": Left,
}

// startGlyph marks an agent with no explicit heading; it faces Up.
const startGlyph = "s"

// ParseTestCases reads a file of scenarios. A line starting with "Testcase"
// closes the current scenario; "Testcases" header lines are skipped.
func ParseTestCases(r io.Reader) ([]Grid, error) {
	var (
		cases   []Grid
		current Grid
	)
	flush := func() {
		if len(current) > 0 {
			cases = append(cases, current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Testcases"):
			continue
		case strings.HasPrefix(line, "Testcase"):
			flush()
		default:
			current = append(current, strings.Fields(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return cases, nil
}

// LoadTestCases reads a scenario file from disk.
func LoadTestCases(path string) ([]Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cases, err := ParseTestCases(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Agent is the position and heading of the agent in a scenario.
type Agent struct {
	Row, Col    int
	Orientation Orientation
}

// FindAgent returns the first directional glyph in row-major order, falling
// back to the first start glyph.
func FindAgent(g Grid) (Agent, bool) {
	for i, row := range g {
		for j, sym := range row {
			if o, ok := agentGlyphs[sym]; ok {
				return Agent{Row: i, Col: j, Orientation: o}, true
			}
		}
	}
	for i, row := range g {
		for j, sym := range row {
			if sym == startGlyph {
				return Agent{Row: i, Col: j, Orientation: Up}, true
			}
		}
	}
	return Agent{}, false
}

// ScenarioState returns the MDP state a scenario describes. The agent holds
// the key exactly when no key is left on the grid.
func ScenarioState(g Grid) (int, bool) {
	agent, ok := FindAgent(g)
	if !ok {
		return 0, false
	}
	return NewLayout(g).StateAt(agent.Row, agent.Col, agent.Orientation, !g.Contains(Key))
}

// Decode picks the policy's action for each scenario. Scenarios without an
// agent, or whose state lies outside the policy, get action 0.
func Decode(cases []Grid, policy []int) []int {
	actions := make([]int, len(cases))
	for i, g := range cases {
		s, ok := ScenarioState(g)
		if !ok || s >= len(policy) {
			continue
		}
		actions[i] = policy[s]
	}
	return actions
}

// WriteActions prints the actions on a single space-separated line.
func WriteActions(w io.Writer, actions []int) error {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = fmt.Sprint(a)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, " "))
	return err
}
