package planner

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/lox/mdpplanner/internal/mdp"
)

// EvaluateIterative computes the value of a fixed policy by synchronous
// Bellman backups starting from zero, stopping once the sup-norm change drops
// below tol. maxSweeps of zero means no cap; with γ = 1 and a policy that never
// reaches a terminal state the loop then only ends through ctx.
//
// When the cap is hit the latest values are returned alongside a
// *NotConvergedError.
func EvaluateIterative(ctx context.Context, m *mdp.Model, policy []int, tol float64, maxSweeps int) ([]float64, int, error) {
	n := m.NumStates
	values := make([]float64, n)
	next := make([]float64, n)
	residual := math.Inf(1)

	for sweep := 1; maxSweeps == 0 || sweep <= maxSweeps; sweep++ {
		if err := ctx.Err(); err != nil {
			return values, sweep - 1, err
		}
		for s := 0; s < n; s++ {
			if m.IsTerminal(s) {
				next[s] = 0
				continue
			}
			next[s] = m.Backup(s, policy[s], values)
		}
		residual = floats.Distance(next, values, math.Inf(1))
		values, next = next, values
		if residual < tol {
			return values, sweep, nil
		}
	}
	return values, maxSweeps, &NotConvergedError{Stage: "iterative evaluation", Iterations: maxSweeps, Residual: residual}
}
