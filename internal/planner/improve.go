package planner

import (
	"math"

	"github.com/lox/mdpplanner/internal/mdp"
)

// greedyAction returns the action with the largest one-step backup at s. Only
// actions with recorded transitions compete, and a later action must be
// strictly better to win, so ties go to the lowest index. ok is false when s
// has no recorded action.
func greedyAction(m *mdp.Model, s int, values []float64) (best int, ok bool) {
	bestValue := math.Inf(-1)
	for a := 0; a < m.NumActions; a++ {
		if !m.HasAction(s, a) {
			continue
		}
		if q := m.Backup(s, a, values); q > bestValue {
			best, bestValue, ok = a, q, true
		}
	}
	return best, ok
}

// GreedyPolicy extracts the greedy policy for a value function. Terminal
// states and states without recorded actions get action 0.
func GreedyPolicy(m *mdp.Model, values []float64) []int {
	policy := make([]int, m.NumStates)
	for s := range policy {
		if m.IsTerminal(s) {
			continue
		}
		if a, ok := greedyAction(m, s, values); ok {
			policy[s] = a
		}
	}
	return policy
}
