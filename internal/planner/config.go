package planner

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Algorithm selects the optimal-control method for continuing MDPs.
type Algorithm uint8

const (
	AlgorithmHPI Algorithm = iota
	AlgorithmLP
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmHPI:
		return "hpi"
	case AlgorithmLP:
		return "lp"
	default:
		return "unknown"
	}
}

// ParseAlgorithm accepts the CLI spelling of an algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hpi":
		return AlgorithmHPI, nil
	case "lp":
		return AlgorithmLP, nil
	default:
		return AlgorithmHPI, fmt.Errorf("unknown algorithm %q", s)
	}
}

// Config aggregates the numeric knobs of a solve.
type Config struct {
	Algorithm Algorithm

	// MaxPolicyIterations bounds Evaluate/Improve rounds. Zero disables the cap.
	MaxPolicyIterations int

	// MaxCondition is the largest condition number the exact evaluator accepts
	// before reporting the system as singular.
	MaxCondition float64

	// Tolerance is the sup-norm threshold that stops iterative evaluation.
	Tolerance float64

	// MaxSweeps bounds iterative evaluation. Zero disables the cap, in which
	// case an undiscounted policy that never terminates loops until the
	// context is cancelled.
	MaxSweeps int

	// AllowPartial turns a non-converged iterative evaluation into a warning
	// with best-effort values instead of a failure.
	AllowPartial bool

	// LPTolerance is passed to the simplex solver.
	LPTolerance float64

	// ValidateProbabilities rejects models whose outcome probabilities do not
	// sum to one.
	ValidateProbabilities bool
}

// DefaultConfig mirrors the behaviour of the reference pipeline with bounded
// loops.
func DefaultConfig() Config {
	return Config{
		Algorithm:             AlgorithmHPI,
		MaxPolicyIterations:   1000,
		MaxCondition:          mat.ConditionTolerance,
		Tolerance:             1e-8,
		MaxSweeps:             1_000_000,
		AllowPartial:          false,
		LPTolerance:           1e-10,
		ValidateProbabilities: true,
	}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.Algorithm > AlgorithmLP {
		return errors.New("invalid algorithm")
	}
	if c.MaxPolicyIterations < 0 {
		return errors.New("max policy iterations cannot be negative")
	}
	if c.MaxCondition <= 1 {
		return errors.New("max condition must be > 1")
	}
	if c.Tolerance <= 0 {
		return errors.New("tolerance must be > 0")
	}
	if c.MaxSweeps < 0 {
		return errors.New("max sweeps cannot be negative")
	}
	if c.LPTolerance <= 0 {
		return errors.New("lp tolerance must be > 0")
	}
	return nil
}
