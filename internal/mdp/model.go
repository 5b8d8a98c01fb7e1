// Package mdp holds the in-memory model of a finite Markov Decision Process and
// the plain-text formats used to move it between the encoder, planner and
// decoder.
package mdp

import (
	"errors"
	"fmt"
	"math"
)

// Kind distinguishes episodic MDPs, which always reach a terminal state, from
// continuing ones.
type Kind uint8

const (
	KindContinuing Kind = iota
	KindEpisodic
)

func (k Kind) String() string {
	switch k {
	case KindContinuing:
		return "continuing"
	case KindEpisodic:
		return "episodic"
	default:
		return "unknown"
	}
}

// ParseKind maps the mdptype keyword value onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "continuing":
		return KindContinuing, nil
	case "episodic":
		return KindEpisodic, nil
	default:
		return KindContinuing, fmt.Errorf("unknown mdptype %q", s)
	}
}

// ProbabilityTolerance is the slack allowed when checking that the outcomes of
// a state-action pair sum to one.
const ProbabilityTolerance = 1e-6

// ErrProbabilitySum marks a state-action pair whose outcome probabilities do
// not sum to one.
var ErrProbabilitySum = errors.New("transition probabilities do not sum to 1")

// Outcome is one recorded (probability, next state, reward) triple.
type Outcome struct {
	Probability float64
	Next        int
	Reward      float64
}

// Model is an immutable MDP description. Transitions are stored densely by
// state-action index; a nil slot means the pair has no recorded transitions.
type Model struct {
	NumStates  int
	NumActions int
	Discount   float64
	Kind       Kind

	transitions [][]Outcome
	terminal    []bool
}

// NewModel allocates an empty model with no transitions and no terminal states.
func NewModel(states, actions int, discount float64, kind Kind) (*Model, error) {
	if states <= 0 {
		return nil, fmt.Errorf("numStates must be > 0 (got %d)", states)
	}
	if actions <= 0 {
		return nil, fmt.Errorf("numActions must be > 0 (got %d)", actions)
	}
	if math.IsNaN(discount) || discount <= 0 || discount > 1 {
		return nil, fmt.Errorf("discount must be in (0, 1] (got %v)", discount)
	}
	return &Model{
		NumStates:   states,
		NumActions:  actions,
		Discount:    discount,
		Kind:        kind,
		transitions: make([][]Outcome, states*actions),
		terminal:    make([]bool, states),
	}, nil
}

// AddTransition appends an outcome to the (s, a) pair. Repeated (s, a, s')
// triples accumulate rather than overwrite.
func (m *Model) AddTransition(s, a, next int, reward, probability float64) error {
	if err := m.checkState(s); err != nil {
		return err
	}
	if err := m.checkState(next); err != nil {
		return err
	}
	if a < 0 || a >= m.NumActions {
		return fmt.Errorf("action %d out of range [0, %d)", a, m.NumActions)
	}
	if math.IsNaN(probability) || probability < 0 {
		return fmt.Errorf("probability must be >= 0 (got %v)", probability)
	}
	idx := s*m.NumActions + a
	m.transitions[idx] = append(m.transitions[idx], Outcome{Probability: probability, Next: next, Reward: reward})
	return nil
}

// MarkTerminal adds s to the terminal set.
func (m *Model) MarkTerminal(s int) error {
	if err := m.checkState(s); err != nil {
		return err
	}
	m.terminal[s] = true
	return nil
}

func (m *Model) checkState(s int) error {
	if s < 0 || s >= m.NumStates {
		return fmt.Errorf("state %d out of range [0, %d)", s, m.NumStates)
	}
	return nil
}

// IsTerminal reports whether s is in the terminal set.
func (m *Model) IsTerminal(s int) bool {
	return m.terminal[s]
}

// Terminals returns the terminal states in ascending order.
func (m *Model) Terminals() []int {
	var out []int
	for s, t := range m.terminal {
		if t {
			out = append(out, s)
		}
	}
	return out
}

// Outcomes returns the recorded outcomes for (s, a). The slice must not be
// modified.
func (m *Model) Outcomes(s, a int) []Outcome {
	if a < 0 || a >= m.NumActions {
		return nil
	}
	return m.transitions[s*m.NumActions+a]
}

// HasAction reports whether (s, a) has at least one recorded outcome.
func (m *Model) HasAction(s, a int) bool {
	return len(m.Outcomes(s, a)) > 0
}

// ActionsAt returns the actions with recorded transitions at s, lowest first.
func (m *Model) ActionsAt(s int) []int {
	var out []int
	for a := 0; a < m.NumActions; a++ {
		if m.HasAction(s, a) {
			out = append(out, a)
		}
	}
	return out
}

// TransitionCount is the number of recorded outcome triples.
func (m *Model) TransitionCount() int {
	n := 0
	for _, o := range m.transitions {
		n += len(o)
	}
	return n
}

// Backup is the one-step expected return Σ p·(r + γ·V[s']) of taking a at s.
func (m *Model) Backup(s, a int, values []float64) float64 {
	var q float64
	for _, o := range m.Outcomes(s, a) {
		q += o.Probability * (o.Reward + m.Discount*values[o.Next])
	}
	return q
}

// ExpectedReward is Σ p·r over the outcomes of (s, a).
func (m *Model) ExpectedReward(s, a int) float64 {
	var r float64
	for _, o := range m.Outcomes(s, a) {
		r += o.Probability * o.Reward
	}
	return r
}

// ValidateProbabilities checks that every recorded (s, a) pair sums to one
// within ProbabilityTolerance. All violations are joined into one error, each
// wrapping ErrProbabilitySum.
func (m *Model) ValidateProbabilities() error {
	var errs []error
	for s := 0; s < m.NumStates; s++ {
		for a := 0; a < m.NumActions; a++ {
			outcomes := m.Outcomes(s, a)
			if len(outcomes) == 0 {
				continue
			}
			var sum float64
			for _, o := range outcomes {
				sum += o.Probability
			}
			if math.Abs(sum-1) > ProbabilityTolerance {
				errs = append(errs, fmt.Errorf("state %d action %d: sum %.9g: %w", s, a, sum, ErrProbabilitySum))
			}
		}
	}
	return errors.Join(errs...)
}
