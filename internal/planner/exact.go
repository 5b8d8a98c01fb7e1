package planner

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lox/mdpplanner/internal/mdp"
)

// ExactEvaluation is the outcome of a direct linear solve. Exactly one of
// Values or Singular is meaningful: when Singular is set the system could not
// be solved reliably and Values is nil.
type ExactEvaluation struct {
	Values    []float64
	Singular  bool
	Condition float64
}

// EvaluateExact solves (I − γ·P_π)·V = R_π for the given policy. Terminal rows
// pin V[s] = 0. R_π(s) is the expected immediate reward of π(s), which is -1
// for unit-cost models. A non-terminal state whose policy action has no
// recorded outcomes gets an identity row with zero reward, so it evaluates to
// 0 rather than the -1 a unit-cost step would give.
func EvaluateExact(m *mdp.Model, policy []int, maxCondition float64) ExactEvaluation {
	n := m.NumStates
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for s := 0; s < n; s++ {
		a.Set(s, s, 1)
		if m.IsTerminal(s) {
			continue
		}
		act := policy[s]
		for _, o := range m.Outcomes(s, act) {
			a.Set(s, o.Next, a.At(s, o.Next)-m.Discount*o.Probability)
		}
		b.SetVec(s, m.ExpectedReward(s, act))
	}

	var lu mat.LU
	lu.Factorize(a)
	cond := lu.Cond()
	if math.IsInf(cond, 1) || math.IsNaN(cond) || cond > maxCondition {
		return ExactEvaluation{Singular: true, Condition: cond}
	}

	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		var c mat.Condition
		if errors.As(err, &c) {
			return ExactEvaluation{Singular: true, Condition: float64(c)}
		}
		return ExactEvaluation{Singular: true, Condition: cond}
	}

	values := make([]float64, n)
	for s := range values {
		v := x.AtVec(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ExactEvaluation{Singular: true, Condition: cond}
		}
		if m.IsTerminal(s) {
			v = 0
		}
		values[s] = v
	}
	return ExactEvaluation{Values: values, Condition: cond}
}
