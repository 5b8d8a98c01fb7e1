package gridworld

import (
	"errors"

	"github.com/lox/mdpplanner/internal/mdp"
)

// Action ids of the encoded MDP.
const (
	Forward = iota
	TurnLeft
	TurnRight
	TurnAround

	numActions
)

// StepCost is the reward of every action.
const StepCost = -1.0

// slideProbabilities is the chance of sliding 1, 2 or 3 cells on Forward.
var slideProbabilities = [3]float64{0.5, 0.3, 0.2}

type outcome struct {
	row, col int
	prob     float64
}

// slide lists where Forward can end up. When the way is blocked, the mass of
// the longer slides collapses onto the furthest reachable cell; with no
// reachable cell the agent stays put.
func (g Grid) slide(row, col int, o Orientation, hasKey bool) []outcome {
	di, dj := headings[o][0], headings[o][1]
	reach := 0
	for d := 1; d <= len(slideProbabilities); d++ {
		if !g.traversable(row+d*di, col+d*dj, hasKey) {
			break
		}
		reach = d
	}
	if reach == 0 {
		return []outcome{{row, col, 1}}
	}

	out := make([]outcome, 0, reach)
	remaining := 1.0
	for d := 1; d <= reach; d++ {
		p := slideProbabilities[d-1]
		if d == reach {
			p = remaining
		}
		remaining -= p
		out = append(out, outcome{row + d*di, col + d*dj, p})
	}
	return out
}

// Encode builds the episodic, undiscounted MDP for g. States on goal cells are
// terminal; every other state has all four actions.
func Encode(g Grid) (*mdp.Model, error) {
	layout := NewLayout(g)
	if layout.FreeCells() == 0 {
		return nil, errors.New("grid has no free cells")
	}
	m, err := mdp.NewModel(layout.NumStates(), numActions, 1.0, mdp.KindEpisodic)
	if err != nil {
		return nil, err
	}

	for idx, c := range layout.cells {
		for o := Up; o <= Left; o++ {
			for _, hasKey := range []bool{false, true} {
				s := StateID(idx, o, hasKey)
				if g[c.row][c.col] == Goal {
					if err := m.MarkTerminal(s); err != nil {
						return nil, err
					}
					continue
				}
				if err := encodeState(m, g, layout, c, o, hasKey, s); err != nil {
					return nil, err
				}
			}
		}
	}
	return m, nil
}

func encodeState(m *mdp.Model, g Grid, layout *Layout, c cell, o Orientation, hasKey bool, s int) error {
	add := func(a int, row, col int, facing Orientation, key bool, p float64) error {
		next, _ := layout.StateAt(row, col, facing, key)
		return m.AddTransition(s, a, next, StepCost, p)
	}

	for _, dst := range g.slide(c.row, c.col, o, hasKey) {
		key := hasKey || g[dst.row][dst.col] == Key
		if err := add(Forward, dst.row, dst.col, o, key, dst.prob); err != nil {
			return err
		}
	}

	turns := []struct {
		action int
		facing Orientation
		prob   float64
	}{
		{TurnLeft, o.left(), 0.9},
		{TurnLeft, o.around(), 0.1},
		{TurnRight, o.right(), 0.9},
		{TurnRight, o.around(), 0.1},
		{TurnAround, o.around(), 0.8},
		{TurnAround, o.left(), 0.1},
		{TurnAround, o.right(), 0.1},
	}
	for _, t := range turns {
		if err := add(t.action, c.row, c.col, t.facing, hasKey, t.prob); err != nil {
			return err
		}
	}
	return nil
}
