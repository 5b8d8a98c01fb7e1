package planner

import (
	"context"

	"github.com/lox/mdpplanner/internal/mdp"
)

// PolicyIterationOutcome is what Howard's loop ends with. When Singular is set
// the loop was abandoned at Iterations and Values/Policy are not meaningful.
type PolicyIterationOutcome struct {
	Values     []float64
	Policy     []int
	Iterations int
	Singular   bool
	Condition  float64
}

// PolicyIteration runs Howard's algorithm from the all-zeros policy until an
// improvement pass changes nothing. A singular evaluation ends the loop
// immediately with Singular set so the caller can switch to the linear
// program.
func PolicyIteration(ctx context.Context, m *mdp.Model, cfg Config, progress func(Progress)) (*PolicyIterationOutcome, error) {
	policy := make([]int, m.NumStates)
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		eval := EvaluateExact(m, policy, cfg.MaxCondition)
		if eval.Singular {
			return &PolicyIterationOutcome{Iterations: iter, Singular: true, Condition: eval.Condition}, nil
		}

		changed := improve(m, policy, eval.Values)
		if progress != nil {
			progress(Progress{Iteration: iter, Values: eval.Values, Changed: changed})
		}
		if changed == 0 {
			return &PolicyIterationOutcome{Values: eval.Values, Policy: policy, Iterations: iter, Condition: eval.Condition}, nil
		}
		if cfg.MaxPolicyIterations > 0 && iter >= cfg.MaxPolicyIterations {
			return nil, &NotConvergedError{Stage: "policy iteration", Iterations: iter, Residual: float64(changed)}
		}
	}
}

// improve updates policy in place with the greedy action of every non-terminal
// state and returns how many states changed.
func improve(m *mdp.Model, policy []int, values []float64) int {
	changed := 0
	for s := 0; s < m.NumStates; s++ {
		if m.IsTerminal(s) {
			continue
		}
		best, ok := greedyAction(m, s, values)
		if ok && best != policy[s] {
			policy[s] = best
			changed++
		}
	}
	return changed
}
