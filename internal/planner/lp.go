package planner

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/lox/mdpplanner/internal/mdp"
)

// LPSolution is the optimal value function recovered from the linear program
// together with its greedy policy.
type LPSolution struct {
	Values []float64
	Policy []int
	// Pinned lists non-terminal states with no recorded action. They absorb
	// like terminal states and are held at zero.
	Pinned []int
}

const (
	// zeroEntry is the magnitude below which a constraint coefficient is
	// treated as an exact zero.
	zeroEntry = 1e-12

	// maxWarmStartRounds caps the policy improvement used to pick the
	// starting basis.
	maxWarmStartRounds = 64

	// improveMargin is the relative gain a warm-start switch must clear.
	improveMargin = 1e-12
)

// SolveLP finds the optimal value function through the dual of
//
//	minimize   Σ_s V_s
//	subject to V_s ≥ Σ p·(r + γ·V_s')         for every recorded (s, a)
//
// whose variables x(s, a) are discounted state-action occupancies:
//
//	minimize   Σ −r(s, a)·x(s, a)
//	subject to Σ_a x(s', a) − γ·Σ p(s'|s, a)·x(s, a) = 1   for every open s'
//	           x ≥ 0
//
// Open states are non-terminal states with at least one recorded action.
// Terminal and pinned states absorb and have value zero. Every basis of the
// program is a deterministic policy and every feasible one has occupancies of
// at least one, so gonum's simplex never meets a degenerate vertex once it is
// handed a proper policy to start from.
func SolveLP(m *mdp.Model, tol float64) (*LPSolution, error) {
	prog, err := newOccupancyProgram(m)
	if err != nil {
		return nil, err
	}
	sol := &LPSolution{Pinned: prog.pinned}
	if len(prog.states) == 0 {
		sol.Values = make([]float64, m.NumStates)
		sol.Policy = make([]int, m.NumStates)
		return sol, nil
	}

	choice, err := prog.startingChoice()
	if err != nil {
		return nil, err
	}
	choice = prog.warmStart(choice)

	// Without a feasible start gonum runs its own phase one.
	var basis []int
	if prog.feasible(choice) {
		basis = choice
	}

	b := make([]float64, len(prog.states))
	for i := range b {
		b[i] = 1
	}
	_, x, err := lp.Simplex(prog.c, prog.a, b, tol, basis)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLPFailed, err)
	}

	policy := prog.policy(prog.choiceFrom(x))
	eval := EvaluateExact(m, policy, mat.ConditionTolerance)
	if eval.Singular {
		return nil, fmt.Errorf("%w: optimal basis is singular (condition %.3g)", ErrLPFailed, eval.Condition)
	}
	sol.Values = eval.Values
	sol.Policy = GreedyPolicy(m, sol.Values)
	return sol, nil
}

// column is the occupancy variable x(s, a).
type column struct {
	state, action int
}

type occupancyProgram struct {
	m      *mdp.Model
	pinned []int

	row    []int // state to row, -1 for absorbing states
	states []int // row to state
	cols   []column
	byRow  [][]int // row to its columns, in action order

	a *mat.Dense
	c []float64
}

func newOccupancyProgram(m *mdp.Model) (*occupancyProgram, error) {
	p := &occupancyProgram{m: m, row: make([]int, m.NumStates)}
	for s := range p.row {
		p.row[s] = -1
		if m.IsTerminal(s) {
			continue
		}
		if len(m.ActionsAt(s)) == 0 {
			p.pinned = append(p.pinned, s)
			continue
		}
		p.row[s] = len(p.states)
		p.states = append(p.states, s)
	}
	rows := len(p.states)
	if rows == 0 {
		return p, nil
	}

	var data [][]float64
	p.byRow = make([][]int, rows)
	for r, s := range p.states {
		for _, a := range m.ActionsAt(s) {
			col := make([]float64, rows)
			col[r] = 1
			for _, o := range m.Outcomes(s, a) {
				if next := p.row[o.Next]; next >= 0 {
					col[next] -= m.Discount * o.Probability
				}
			}
			empty := true
			for i, v := range col {
				if math.Abs(v) <= zeroEntry {
					col[i] = 0
				} else {
					empty = false
				}
			}
			cost := -m.ExpectedReward(s, a)
			if empty {
				// A certain undiscounted self-loop repeats its reward forever.
				if cost < 0 {
					return nil, fmt.Errorf("%w: state %d action %d collects unbounded reward", ErrLPFailed, s, a)
				}
				continue
			}
			p.byRow[r] = append(p.byRow[r], len(p.cols))
			p.cols = append(p.cols, column{state: s, action: a})
			p.c = append(p.c, cost)
			data = append(data, col)
		}
		if len(p.byRow[r]) == 0 {
			return nil, fmt.Errorf("%w: state %d never leaves itself", ErrLPFailed, s)
		}
	}

	p.a = mat.NewDense(rows, len(p.cols), nil)
	for j, col := range data {
		p.a.SetCol(j, col)
	}
	return p, nil
}

// startingChoice picks one column per row. With discounting any choice is
// feasible. Undiscounted programs need a proper policy, built backwards from
// the absorbing states: each row takes its first column that can move to a
// state already known to reach one.
func (p *occupancyProgram) startingChoice() ([]int, error) {
	choice := make([]int, len(p.states))
	if p.m.Discount < 1 {
		for r := range choice {
			choice[r] = p.byRow[r][0]
		}
		return choice, nil
	}

	reached := make([]bool, p.m.NumStates)
	for s, r := range p.row {
		reached[s] = r < 0
	}
	for r := range choice {
		choice[r] = -1
	}
	for changed := true; changed; {
		changed = false
		for r, s := range p.states {
			if choice[r] >= 0 {
				continue
			}
			for _, j := range p.byRow[r] {
				if p.reaches(j, reached) {
					choice[r], reached[s], changed = j, true, true
					break
				}
			}
		}
	}
	for r, j := range choice {
		if j < 0 {
			return nil, fmt.Errorf("%w: state %d cannot reach a terminal state", ErrLPFailed, p.states[r])
		}
	}
	return choice, nil
}

func (p *occupancyProgram) reaches(j int, reached []bool) bool {
	col := p.cols[j]
	for _, o := range p.m.Outcomes(col.state, col.action) {
		if o.Probability > 0 && o.Next != col.state && reached[o.Next] {
			return true
		}
	}
	return false
}

// warmStart applies policy improvement to choice for as long as the improved
// basis stays feasible.
func (p *occupancyProgram) warmStart(choice []int) []int {
	for round := 0; round < maxWarmStartRounds; round++ {
		eval := EvaluateExact(p.m, p.policy(choice), mat.ConditionTolerance)
		if eval.Singular {
			return choice
		}
		next, changed := p.improve(choice, eval.Values)
		if !changed {
			return choice
		}
		if !p.feasible(next) {
			return choice
		}
		choice = next
	}
	return choice
}

func (p *occupancyProgram) improve(choice []int, values []float64) ([]int, bool) {
	next := slices.Clone(choice)
	changed := false
	for r, s := range p.states {
		best := p.m.Backup(s, p.cols[choice[r]].action, values)
		for _, j := range p.byRow[r] {
			if q := p.m.Backup(s, p.cols[j].action, values); q > best+improveMargin*(1+math.Abs(best)) {
				next[r], best, changed = j, q, true
			}
		}
	}
	return next, changed
}

// feasible reports whether the basis picked by choice is nonsingular with
// nonnegative occupancies.
func (p *occupancyProgram) feasible(choice []int) bool {
	rows := len(p.states)
	basis := mat.NewDense(rows, rows, nil)
	for i, j := range choice {
		basis.SetCol(i, mat.Col(nil, j, p.a))
	}
	ones := make([]float64, rows)
	for i := range ones {
		ones[i] = 1
	}

	var x mat.VecDense
	if err := x.SolveVec(basis, mat.NewVecDense(rows, ones)); err != nil {
		return false
	}
	for i := 0; i < rows; i++ {
		if v := x.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// choiceFrom reads the basis back out of a simplex solution: the column with
// the largest occupancy in each row.
func (p *occupancyProgram) choiceFrom(x []float64) []int {
	choice := make([]int, len(p.states))
	for r, cols := range p.byRow {
		choice[r] = cols[0]
		for _, j := range cols[1:] {
			if x[j] > x[choice[r]] {
				choice[r] = j
			}
		}
	}
	return choice
}

// policy expands choice to a full policy. Absorbing states get action 0.
func (p *occupancyProgram) policy(choice []int) []int {
	policy := make([]int, p.m.NumStates)
	for r, j := range choice {
		policy[p.states[r]] = p.cols[j].action
	}
	return policy
}
