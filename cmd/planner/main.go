package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/mdpplanner/internal/config"
	"github.com/lox/mdpplanner/internal/fileutil"
	"github.com/lox/mdpplanner/internal/logging"
	"github.com/lox/mdpplanner/internal/mdp"
	"github.com/lox/mdpplanner/internal/planner"
	"github.com/lox/mdpplanner/internal/report"
)

type CLI struct {
	MDP       string `name:"mdp" help:"path to the MDP file" required:"" type:"path"`
	Algorithm string `help:"solver for continuing MDPs (hpi|lp); defaults to the config file"`
	Policy    string `help:"evaluate this policy file instead of optimising" type:"path"`

	Config      string        `short:"c" help:"path to HCL configuration file" default:"planner.hcl" type:"path"`
	Out         string        `short:"o" help:"write value-policy lines to this file instead of stdout" type:"path"`
	Summary     bool          `help:"print a solve summary to stderr"`
	NoColor     bool          `help:"disable colour in the summary"`
	Report      string        `help:"write a run report to this path (YAML, or TOML for .toml)" type:"path"`
	MetricsFile string        `help:"write Prometheus metrics in textfile format to this path" type:"path"`
	Timeout     time.Duration `help:"abort the solve after this long (0 disables)" default:"0"`
	Debug       bool          `help:"enable debug logging"`
	LogFormat   string        `help:"log output format (console|json); defaults to the config file"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("planner"),
		kong.Description("Solve finite MDPs with policy iteration or linear programming"),
		kong.UsageOnError(),
	)

	settings, err := cli.settings()
	if err != nil {
		setupFallbackLogger()
		log.Fatal().Err(err).Str("config", cli.Config).Msg("invalid configuration")
	}

	logger, err := logging.Setup(settings.LogLevel, logging.Format(settings.LogFormat), cli.Debug)
	if err != nil {
		setupFallbackLogger()
		log.Fatal().Err(err).Msg("invalid logging configuration")
	}
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, settings, logger); err != nil {
		stop()
		log.Fatal().Err(err).Str("mdp", cli.MDP).Msg("planning failed")
	}
}

func setupFallbackLogger() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// settings loads the config file and applies flag overrides.
func (c *CLI) settings() (*config.Settings, error) {
	s, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Algorithm != "" {
		alg, err := planner.ParseAlgorithm(c.Algorithm)
		if err != nil {
			return nil, err
		}
		s.Planner.Algorithm = alg
	}
	if c.LogFormat != "" {
		s.LogFormat = c.LogFormat
	}
	return s, s.Validate()
}

func (c *CLI) Run(ctx context.Context, settings *config.Settings, logger zerolog.Logger) error {
	m, err := mdp.Load(c.MDP)
	if err != nil {
		return err
	}
	logger.Debug().
		Int("states", m.NumStates).
		Int("actions", m.NumActions).
		Int("transitions", m.TransitionCount()).
		Stringer("kind", m.Kind).
		Float64("discount", m.Discount).
		Msg("model loaded")

	req := planner.Request{
		Progress: func(p planner.Progress) {
			logger.Debug().Int("iteration", p.Iteration).Int("changed", p.Changed).Msg("policy improved")
		},
	}
	if c.Policy != "" {
		req.Policy, err = mdp.LoadPolicy(c.Policy, m.NumStates, m.NumActions)
		if err != nil {
			return err
		}
	}

	clock := quartz.NewReal()
	opts := []planner.Option{planner.WithLogger(logger), planner.WithClock(clock)}
	var metrics *planner.Metrics
	if c.MetricsFile != "" {
		metrics = planner.NewMetrics()
		opts = append(opts, planner.WithMetrics(metrics))
	}

	p, err := planner.New(settings.Planner, opts...)
	if err != nil {
		return err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	res, solveErr := p.Solve(ctx, m, req)
	if metrics != nil {
		if err := metrics.WriteTextfile(c.MetricsFile); err != nil {
			logger.Warn().Err(err).Str("path", c.MetricsFile).Msg("failed to write metrics")
		}
	}
	if solveErr != nil {
		return solveErr
	}

	if err := c.writeValues(res, settings.Precision); err != nil {
		return fmt.Errorf("write values: %w", err)
	}

	if c.Summary {
		if err := report.WriteSummary(os.Stderr, m, res, c.NoColor); err != nil {
			return err
		}
	}
	if c.Report != "" {
		if err := report.NewRun(c.MDP, m, res, clock.Now()).WriteFile(c.Report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info().Str("path", c.Report).Msg("report written")
	}
	return nil
}

func (c *CLI) writeValues(res *planner.Result, precision int) error {
	write := func(w io.Writer) error {
		return mdp.WriteValuePolicy(w, res.Values, res.Policy, precision)
	}
	if c.Out != "" {
		return fileutil.WriteAtomic(c.Out, 0o644, write)
	}

	w := bufio.NewWriter(os.Stdout)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}
