// Package planner computes optimal value functions and policies for finite
// MDPs, and evaluates fixed policies.
//
// Continuing MDPs are solved with Howard's policy iteration by default, which
// falls back to a linear program once if a policy's linear system turns out
// to be singular. Episodic MDPs always go through the linear program.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/mdpplanner/internal/mdp"
)

// Method records which engine produced a result.
type Method string

const (
	MethodHPI       Method = "hpi"
	MethodLP        Method = "lp"
	MethodIterative Method = "iterative"
)

// Progress is emitted after every evaluation phase of policy iteration.
type Progress struct {
	Iteration int
	Values    []float64
	Changed   int
}

// Result is the value function and policy of a solve plus diagnostics.
type Result struct {
	RunID      string
	Method     Method
	Requested  Algorithm
	Values     []float64
	Policy     []int
	Iterations int
	// FellBack is set when policy iteration hit a singular system and the
	// linear program produced the result instead.
	FellBack bool
	// Converged is false only for best-effort iterative evaluations.
	Converged bool
	Duration  time.Duration
}

// Request describes one solve. A non-nil Policy selects evaluation-only mode.
type Request struct {
	Policy   []int
	Progress func(Progress)
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for solve diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// WithClock sets the clock used to time solves.
func WithClock(clock quartz.Clock) Option {
	return func(p *Planner) {
		p.clock = clock
	}
}

// WithMetrics records every solve into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Planner) {
		p.metrics = m
	}
}

// Planner selects and runs the engine for a model.
type Planner struct {
	cfg     Config
	logger  zerolog.Logger
	clock   quartz.Clock
	metrics *Metrics
}

// New validates cfg and returns a Planner.
func New(cfg Config, opts ...Option) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Planner{
		cfg:    cfg,
		logger: zerolog.Nop(),
		clock:  quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the planner configuration.
func (p *Planner) Config() Config {
	return p.cfg
}

// Solve runs evaluation or optimisation for m according to req.
func (p *Planner) Solve(ctx context.Context, m *mdp.Model, req Request) (*Result, error) {
	if p.cfg.ValidateProbabilities {
		if err := m.ValidateProbabilities(); err != nil {
			if p.metrics != nil {
				p.metrics.Observe(m, nil, err)
			}
			return nil, err
		}
	}

	runID := uuid.New().String()
	logger := p.logger.With().Str("run_id", runID).Logger()
	start := p.clock.Now()

	var (
		res *Result
		err error
	)
	switch {
	case req.Policy != nil:
		res, err = p.evaluate(ctx, logger, m, req.Policy)
	case m.Kind == mdp.KindEpisodic:
		if p.cfg.Algorithm != AlgorithmLP {
			logger.Debug().Str("requested", p.cfg.Algorithm.String()).Msg("episodic mdp, using lp")
		}
		res, err = p.linearProgram(logger, m)
	case p.cfg.Algorithm == AlgorithmLP:
		res, err = p.linearProgram(logger, m)
	default:
		res, err = p.policyIteration(ctx, logger, m, req.Progress)
	}
	if res != nil {
		res.RunID = runID
		res.Requested = p.cfg.Algorithm
		res.Duration = p.clock.Since(start)
	}
	if p.metrics != nil {
		p.metrics.Observe(m, res, err)
	}
	if err != nil {
		return res, err
	}

	logger.Info().
		Str("method", string(res.Method)).
		Int("states", m.NumStates).
		Int("iterations", res.Iterations).
		Bool("fell_back", res.FellBack).
		Dur("duration", res.Duration).
		Msg("solve complete")
	return res, nil
}

func (p *Planner) evaluate(ctx context.Context, logger zerolog.Logger, m *mdp.Model, policy []int) (*Result, error) {
	if len(policy) < m.NumStates {
		return nil, fmt.Errorf("policy has %d entries, want %d", len(policy), m.NumStates)
	}
	values, sweeps, err := EvaluateIterative(ctx, m, policy, p.cfg.Tolerance, p.cfg.MaxSweeps)
	res := &Result{
		Method:     MethodIterative,
		Values:     values,
		Policy:     append([]int(nil), policy[:m.NumStates]...),
		Iterations: sweeps,
		Converged:  err == nil,
	}
	if err == nil {
		return res, nil
	}
	var nc *NotConvergedError
	if errors.As(err, &nc) && p.cfg.AllowPartial {
		logger.Warn().Int("sweeps", nc.Iterations).Float64("residual", nc.Residual).Msg("iterative evaluation did not converge, returning partial values")
		return res, nil
	}
	return res, err
}

func (p *Planner) linearProgram(logger zerolog.Logger, m *mdp.Model) (*Result, error) {
	sol, err := SolveLP(m, p.cfg.LPTolerance)
	if err != nil {
		return nil, err
	}
	if len(sol.Pinned) > 0 {
		logger.Warn().Ints("states", sol.Pinned).Msg("non-terminal states without actions held at zero")
	}
	return &Result{
		Method:     MethodLP,
		Values:     sol.Values,
		Policy:     sol.Policy,
		Iterations: 1,
		Converged:  true,
	}, nil
}

func (p *Planner) policyIteration(ctx context.Context, logger zerolog.Logger, m *mdp.Model, progress func(Progress)) (*Result, error) {
	out, err := PolicyIteration(ctx, m, p.cfg, progress)
	if err != nil {
		return nil, err
	}
	if out.Singular {
		logger.Debug().Int("iteration", out.Iterations).Float64("condition", out.Condition).Msg("singular evaluation system, falling back to lp")
		res, err := p.linearProgram(logger, m)
		if err != nil {
			return nil, err
		}
		res.FellBack = true
		res.Iterations = out.Iterations
		return res, nil
	}
	return &Result{
		Method:     MethodHPI,
		Values:     out.Values,
		Policy:     out.Policy,
		Iterations: out.Iterations,
		Converged:  true,
	}, nil
}
