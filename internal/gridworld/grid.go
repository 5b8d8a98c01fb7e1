// Package gridworld converts key-and-door grid problems into MDPs and maps
// planner policies back onto concrete scenarios.
//
// A grid is a matrix of whitespace-separated symbols: W is a wall, d a door
// that needs the key, k the key, g a goal, and anything else is free floor.
// Every non-wall cell is free and numbered in row-major order. A state packs
// the free-cell index, the agent's orientation and whether it holds the key:
//
//	state = ((cell*4) + orientation)*2 + key
package gridworld

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	Wall = "W"
	Door = "d"
	Key  = "k"
	Goal = "g"
)

// Orientation is the direction the agent faces.
type Orientation int

const (
	Up Orientation = iota
	Right
	Down
	Left
)

var headings = [4][2]int{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}

func (o Orientation) left() Orientation   { return (o + 3) % 4 }
func (o Orientation) right() Orientation  { return (o + 1) % 4 }
func (o Orientation) around() Orientation { return (o + 2) % 4 }

// Grid is a parsed grid, one slice of symbols per row.
type Grid [][]string

// ParseGrid reads one row per non-blank line.
func ParseGrid(r io.Reader) (Grid, error) {
	var g Grid
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		row := strings.Fields(scanner.Text())
		if len(row) == 0 {
			continue
		}
		g = append(g, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(g) == 0 {
		return nil, errors.New("empty grid")
	}
	return g, nil
}

// LoadGrid reads a grid file from disk.
func LoadGrid(path string) (Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := ParseGrid(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func (g Grid) inBounds(i, j int) bool {
	return i >= 0 && i < len(g) && j >= 0 && j < len(g[i])
}

// traversable reports whether the agent may enter (i, j).
func (g Grid) traversable(i, j int, hasKey bool) bool {
	if !g.inBounds(i, j) {
		return false
	}
	switch g[i][j] {
	case Wall:
		return false
	case Door:
		return hasKey
	default:
		return true
	}
}

// Contains reports whether any cell holds sym.
func (g Grid) Contains(sym string) bool {
	for _, row := range g {
		for _, cell := range row {
			if cell == sym {
				return true
			}
		}
	}
	return false
}

type cell struct{ row, col int }

// Layout numbers the free cells of a grid.
type Layout struct {
	cells []cell
	index map[cell]int
}

// NewLayout indexes every non-wall cell in row-major order.
func NewLayout(g Grid) *Layout {
	l := &Layout{index: make(map[cell]int)}
	for i, row := range g {
		for j, sym := range row {
			if sym == Wall {
				continue
			}
			c := cell{i, j}
			l.index[c] = len(l.cells)
			l.cells = append(l.cells, c)
		}
	}
	return l
}

// FreeCells is the number of indexed cells.
func (l *Layout) FreeCells() int {
	return len(l.cells)
}

// NumStates is the size of the state space for this layout.
func (l *Layout) NumStates() int {
	return len(l.cells) * 8
}

// StateAt returns the state id of an agent at (row, col). ok is false for
// walls and cells outside the grid.
func (l *Layout) StateAt(row, col int, o Orientation, hasKey bool) (int, bool) {
	idx, ok := l.index[cell{row, col}]
	if !ok {
		return 0, false
	}
	return StateID(idx, o, hasKey), true
}

// StateID packs a free-cell index, orientation and key flag into a state id.
func StateID(cellIndex int, o Orientation, hasKey bool) int {
	key := 0
	if hasKey {
		key = 1
	}
	return ((cellIndex*4)+int(o))*2 + key
}
