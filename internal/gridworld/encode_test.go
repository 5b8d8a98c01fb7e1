package gridworld

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/mdpplanner/internal/mdp"
)

func mustGrid(t *testing.T, text string) Grid {
	t.Helper()
	g, err := ParseGrid(strings.NewReader(text))
	require.NoError(t, err)
	return g
}

func mustEncode(t *testing.T, text string) *mdp.Model {
	t.Helper()
	m, err := Encode(mustGrid(t, text))
	require.NoError(t, err)
	return m
}

func next(idx int, o Orientation, key bool, p float64) mdp.Outcome {
	return mdp.Outcome{Probability: p, Next: StateID(idx, o, key), Reward: StepCost}
}

func TestParseGrid(t *testing.T) {
	g := mustGrid(t, "W W W\n\nW . g\n")
	assert.Equal(t, Grid{{"W", "W", "W"}, {"W", ".", "g"}}, g)

	_, err := ParseGrid(strings.NewReader("\n  \n"))
	assert.Error(t, err)
}

func TestLayoutNumbersFreeCellsRowMajor(t *testing.T) {
	l := NewLayout(mustGrid(t, "W . W\n. d g"))
	assert.Equal(t, 4, l.FreeCells())
	assert.Equal(t, 32, l.NumStates())

	s, ok := l.StateAt(1, 0, Left, true)
	require.True(t, ok)
	assert.Equal(t, ((1*4)+3)*2+1, s)

	_, ok = l.StateAt(0, 0, Up, false)
	assert.False(t, ok)
}

func TestEncodeHeader(t *testing.T) {
	m := mustEncode(t, ". . g")
	assert.Equal(t, 24, m.NumStates)
	assert.Equal(t, 4, m.NumActions)
	assert.Equal(t, mdp.KindEpisodic, m.Kind)
	assert.Equal(t, 1.0, m.Discount)
	assert.NoError(t, m.ValidateProbabilities())
}

func TestEncodeForwardSlide(t *testing.T) {
	tests := []struct {
		name string
		grid string
		from int
		o    Orientation
		key  bool
		want []mdp.Outcome
	}{
		{
			name: "open floor",
			grid: ". . . .",
			o:    Right,
			key:  true,
			want: []mdp.Outcome{next(1, Right, true, 0.5), next(2, Right, true, 0.3), next(3, Right, true, 0.2)},
		},
		{
			name: "wall after one cell",
			grid: ". . W",
			o:    Right,
			want: []mdp.Outcome{next(1, Right, false, 1)},
		},
		{
			name: "edge of grid",
			grid: ". . W",
			o:    Left,
			want: []mdp.Outcome{next(0, Left, false, 1)},
		},
		{
			name: "door without key",
			grid: ". d .",
			o:    Right,
			want: []mdp.Outcome{next(0, Right, false, 1)},
		},
		{
			name: "door with key",
			grid: ". d .",
			o:    Right,
			key:  true,
			want: []mdp.Outcome{next(1, Right, true, 0.5), next(2, Right, true, 0.5)},
		},
		{
			name: "landing on key picks it up",
			grid: ". k .",
			o:    Right,
			want: []mdp.Outcome{next(1, Right, true, 0.5), next(2, Right, false, 0.5)},
		},
		{
			name: "vertical slide",
			grid: ".\n.\nW\n.",
			from: 1,
			o:    Up,
			want: []mdp.Outcome{next(0, Up, false, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustEncode(t, tt.grid)
			got := m.Outcomes(StateID(tt.from, tt.o, tt.key), Forward)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Next, got[i].Next, "outcome %d", i)
				assert.InDelta(t, tt.want[i].Probability, got[i].Probability, 1e-12, "outcome %d", i)
				assert.Equal(t, StepCost, got[i].Reward)
			}
		})
	}
}

func TestEncodeTurns(t *testing.T) {
	m := mustEncode(t, ". .")

	tests := []struct {
		action int
		want   map[int]float64
	}{
		{TurnLeft, map[int]float64{StateID(0, Left, false): 0.9, StateID(0, Down, false): 0.1}},
		{TurnRight, map[int]float64{StateID(0, Right, false): 0.9, StateID(0, Down, false): 0.1}},
		{TurnAround, map[int]float64{StateID(0, Down, false): 0.8, StateID(0, Left, false): 0.1, StateID(0, Right, false): 0.1}},
	}
	for _, tt := range tests {
		got := make(map[int]float64)
		for _, o := range m.Outcomes(StateID(0, Up, false), tt.action) {
			got[o.Next] += o.Probability
		}
		assert.Equal(t, tt.want, got, "action %d", tt.action)
	}
}

func TestEncodeGoalStatesAreTerminal(t *testing.T) {
	m := mustEncode(t, ". g")
	assert.Equal(t, []int{8, 9, 10, 11, 12, 13, 14, 15}, m.Terminals())
	for s := 8; s < 16; s++ {
		assert.Empty(t, m.ActionsAt(s))
	}
	assert.Equal(t, []int{0, 1, 2, 3}, m.ActionsAt(0))
}

func TestEncodeRejectsAllWalls(t *testing.T) {
	_, err := Encode(mustGrid(t, "W W\nW W"))
	assert.Error(t, err)
}
