package main

import (
	"bufio"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/mdpplanner/internal/fileutil"
	"github.com/lox/mdpplanner/internal/gridworld"
	"github.com/lox/mdpplanner/internal/mdp"
)

var CLI struct {
	Gridworld string `name:"gridworld" required:"" type:"path" help:"Path to the grid file"`
	Out       string `short:"o" type:"path" help:"Write the MDP to this file instead of stdout"`
	LogLevel  string `short:"l" long:"log-level" default:"info" help:"Log level (debug, info, warn, error)"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("encoder"),
		kong.Description("Encode a key-and-door grid as an MDP"),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "encoder"})
	if level, err := log.ParseLevel(CLI.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	grid, err := gridworld.LoadGrid(CLI.Gridworld)
	if err != nil {
		logger.Error("Failed to load grid", "error", err)
		ctx.Exit(1)
	}

	m, err := gridworld.Encode(grid)
	if err != nil {
		logger.Error("Failed to encode grid", "error", err, "path", CLI.Gridworld)
		ctx.Exit(1)
	}
	logger.Debug("Encoded grid",
		"rows", len(grid),
		"states", m.NumStates,
		"terminals", len(m.Terminals()),
		"transitions", m.TransitionCount())

	write := func(w io.Writer) error { return mdp.Write(w, m) }
	if CLI.Out != "" {
		err = fileutil.WriteAtomic(CLI.Out, 0o644, write)
	} else {
		w := bufio.NewWriter(os.Stdout)
		if err = write(w); err == nil {
			err = w.Flush()
		}
	}
	if err != nil {
		logger.Error("Failed to write MDP", "error", err)
		ctx.Exit(1)
	}
}
