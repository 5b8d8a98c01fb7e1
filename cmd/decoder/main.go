package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/mdpplanner/internal/gridworld"
	"github.com/lox/mdpplanner/internal/mdp"
)

var CLI struct {
	MDP         string `name:"mdp" required:"" type:"path" help:"Path to the encoded MDP"`
	ValuePolicy string `name:"value-policy" required:"" type:"path" help:"Path to the planner's value-policy output"`
	Gridworld   string `name:"gridworld" required:"" type:"path" help:"Path to the test case file"`
	LogLevel    string `short:"l" long:"log-level" default:"info" help:"Log level (debug, info, warn, error)"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("decoder"),
		kong.Description("Map a planner policy onto grid test cases"),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "decoder"})
	if level, err := log.ParseLevel(CLI.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	m, err := mdp.Load(CLI.MDP)
	if err != nil {
		logger.Error("Failed to load MDP", "error", err)
		ctx.Exit(1)
	}

	values, policy, err := mdp.LoadValuePolicy(CLI.ValuePolicy)
	if err != nil {
		logger.Error("Failed to load value-policy", "error", err)
		ctx.Exit(1)
	}
	if len(policy) != m.NumStates {
		logger.Warn("Policy length differs from MDP",
			"policy", len(policy),
			"states", m.NumStates)
	}
	logger.Debug("Loaded policy", "states", len(policy), "values", len(values))

	cases, err := gridworld.LoadTestCases(CLI.Gridworld)
	if err != nil {
		logger.Error("Failed to load test cases", "error", err)
		ctx.Exit(1)
	}

	actions := gridworld.Decode(cases, policy)
	for i, g := range cases {
		if _, ok := gridworld.FindAgent(g); !ok {
			logger.Warn("No agent in test case, defaulting to action 0", "case", i+1)
		}
	}

	if err := gridworld.WriteActions(os.Stdout, actions); err != nil {
		logger.Error("Failed to write actions", "error", err)
		ctx.Exit(1)
	}
}
