package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/mdpplanner/internal/mdp"
	"github.com/lox/mdpplanner/internal/randutil"
)

const (
	// single non-terminal state looping on itself
	selfLoopMDP = `numStates 1
numActions 1
transition 0 0 0 -1 1
end
mdptype continuing
discount 0.9
`
	// two-state chain into a terminal state
	chainMDP = `numStates 2
numActions 1
transition 0 0 1 -1 1
end 1
mdptype episodic
discount 1.0
`
)

// loopOrExit builds a state with a self-loop (action 0) and an exit to a
// terminal state (action 1), both costing 1.
func loopOrExit(kind string, discount string) string {
	return `numStates 2
numActions 2
transition 0 0 0 -1 1
transition 0 1 1 -1 1
end 1
mdptype ` + kind + `
discount ` + discount + `
`
}

func parseModel(t *testing.T, text string) *mdp.Model {
	t.Helper()
	m, err := mdp.Parse(strings.NewReader(text))
	require.NoError(t, err)
	return m
}

// randomModel builds a continuing MDP where every non-terminal state has every
// action, each with up to three outcomes.
func randomModel(t *testing.T, seed int64, states, actions int, discount float64) *mdp.Model {
	t.Helper()
	rng := randutil.New(seed)
	m, err := mdp.NewModel(states, actions, discount, mdp.KindContinuing)
	require.NoError(t, err)

	terminal := states - 1
	require.NoError(t, m.MarkTerminal(terminal))
	for s := 0; s < states; s++ {
		if s == terminal {
			continue
		}
		for a := 0; a < actions; a++ {
			for _, p := range randutil.Distribution(rng, 1+rng.IntN(3), 0.1) {
				next := rng.IntN(states)
				reward := -2 + 3*rng.Float64()
				require.NoError(t, m.AddTransition(s, a, next, reward, p))
			}
		}
	}
	return m
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxSweeps = 0
	return cfg
}
