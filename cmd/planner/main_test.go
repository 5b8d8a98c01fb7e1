package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/mdpplanner/internal/config"
	"github.com/lox/mdpplanner/internal/planner"
	"github.com/lox/mdpplanner/internal/report"
)

const loopOrExit = `numStates 2
numActions 2
transition 0 0 0 -1 1
transition 0 1 1 -1 1
end 1
mdptype continuing
discount 0.9
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{
		MDP:         writeFile(t, dir, "mdp.txt", loopOrExit),
		Config:      filepath.Join(dir, "missing.hcl"),
		Out:         filepath.Join(dir, "values.txt"),
		Report:      filepath.Join(dir, "run.yaml"),
		MetricsFile: filepath.Join(dir, "planner.prom"),
	}
	settings, err := cli.settings()
	require.NoError(t, err)

	require.NoError(t, cli.Run(context.Background(), settings, zerolog.Nop()))

	values, err := os.ReadFile(cli.Out)
	require.NoError(t, err)
	assert.Equal(t, "-1.00000000\t1\n0.00000000\t0\n", string(values))

	run, err := report.ReadRun(cli.Report)
	require.NoError(t, err)
	assert.Equal(t, "hpi", run.Solve.Method)
	assert.Equal(t, 2, run.Model.States)
	assert.NotEmpty(t, run.RunID)

	metrics, err := os.ReadFile(cli.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "mdpplanner_solves_total")
}

func TestRunEvaluatesPolicy(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{
		MDP:    writeFile(t, dir, "mdp.txt", loopOrExit),
		Policy: writeFile(t, dir, "policy.txt", "1\n0\n"),
		Config: filepath.Join(dir, "missing.hcl"),
		Out:    filepath.Join(dir, "values.txt"),
	}
	settings, err := cli.settings()
	require.NoError(t, err)

	require.NoError(t, cli.Run(context.Background(), settings, zerolog.Nop()))

	values, err := os.ReadFile(cli.Out)
	require.NoError(t, err)
	assert.Equal(t, "-1.00000000\t1\n0.00000000\t0\n", string(values))
}

func TestRunMissingModel(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{MDP: filepath.Join(dir, "nope.txt"), Config: filepath.Join(dir, "missing.hcl")}
	settings, err := cli.settings()
	require.NoError(t, err)
	assert.Error(t, cli.Run(context.Background(), settings, zerolog.Nop()))
}

func TestSettingsOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "planner.hcl", "output {\n  precision = 3\n}\nlog {\n  format = \"json\"\n}\n")

	cli := &CLI{Config: cfg, Algorithm: "lp", LogFormat: "console"}
	s, err := cli.settings()
	require.NoError(t, err)
	assert.Equal(t, planner.AlgorithmLP, s.Planner.Algorithm)
	assert.Equal(t, "console", s.LogFormat)
	assert.Equal(t, 3, s.Precision)

	cli.Algorithm = "vi"
	_, err = cli.settings()
	assert.Error(t, err)

	cli = &CLI{Config: filepath.Join(dir, "missing.hcl"), LogFormat: "xml"}
	_, err = cli.settings()
	assert.Error(t, err)

	def, err := (&CLI{Config: filepath.Join(dir, "missing.hcl")}).settings()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), def)
}
