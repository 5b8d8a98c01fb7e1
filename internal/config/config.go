// Package config loads the planner's optional HCL configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/mdpplanner/internal/mdp"
	"github.com/lox/mdpplanner/internal/planner"
)

// DefaultPath is where the planner looks for its configuration.
const DefaultPath = "planner.hcl"

// File mirrors the blocks of planner.hcl. Every block and attribute is
// optional; pointers distinguish "unset" from an explicit zero.
type File struct {
	Planner    *PlannerBlock    `hcl:"planner,block"`
	Evaluation *EvaluationBlock `hcl:"evaluation,block"`
	LP         *LPBlock         `hcl:"lp,block"`
	Output     *OutputBlock     `hcl:"output,block"`
	Log        *LogBlock        `hcl:"log,block"`
}

// PlannerBlock holds solver selection and policy iteration limits.
type PlannerBlock struct {
	Algorithm             *string  `hcl:"algorithm,optional"`
	MaxPolicyIterations   *int     `hcl:"max_policy_iterations,optional"`
	MaxCondition          *float64 `hcl:"max_condition,optional"`
	ValidateProbabilities *bool    `hcl:"validate_probabilities,optional"`
}

// EvaluationBlock tunes the iterative evaluator.
type EvaluationBlock struct {
	Tolerance    *float64 `hcl:"tolerance,optional"`
	MaxSweeps    *int     `hcl:"max_sweeps,optional"`
	AllowPartial *bool    `hcl:"allow_partial,optional"`
}

// LPBlock tunes the simplex backend.
type LPBlock struct {
	Tolerance *float64 `hcl:"tolerance,optional"`
}

// OutputBlock controls value-policy formatting.
type OutputBlock struct {
	Precision *int `hcl:"precision,optional"`
}

// LogBlock controls the planner's logger.
type LogBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// Settings is the resolved configuration after defaults.
type Settings struct {
	Planner   planner.Config
	Precision int
	LogLevel  string
	LogFormat string
}

// Default returns the settings used when no file is present.
func Default() *Settings {
	return &Settings{
		Planner:   planner.DefaultConfig(),
		Precision: mdp.DefaultPrecision,
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads settings from path. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decode(file)
}

// Parse decodes settings from HCL source; filename is used in diagnostics.
func Parse(src []byte, filename string) (*Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decode(file)
}

func decode(file *hcl.File) (*Settings, error) {
	var raw File
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	s, err := raw.apply(Default())
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// apply overlays the attributes present in the file onto base.
func (f *File) apply(base *Settings) (*Settings, error) {
	s := *base
	cfg := &s.Planner

	if b := f.Planner; b != nil {
		if b.Algorithm != nil {
			alg, err := planner.ParseAlgorithm(*b.Algorithm)
			if err != nil {
				return nil, err
			}
			cfg.Algorithm = alg
		}
		set(&cfg.MaxPolicyIterations, b.MaxPolicyIterations)
		set(&cfg.MaxCondition, b.MaxCondition)
		set(&cfg.ValidateProbabilities, b.ValidateProbabilities)
	}
	if b := f.Evaluation; b != nil {
		set(&cfg.Tolerance, b.Tolerance)
		set(&cfg.MaxSweeps, b.MaxSweeps)
		set(&cfg.AllowPartial, b.AllowPartial)
	}
	if b := f.LP; b != nil {
		set(&cfg.LPTolerance, b.Tolerance)
	}
	if b := f.Output; b != nil {
		set(&s.Precision, b.Precision)
	}
	if b := f.Log; b != nil {
		set(&s.LogLevel, b.Level)
		set(&s.LogFormat, b.Format)
	}
	return &s, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the resolved settings.
func (s *Settings) Validate() error {
	if err := s.Planner.Validate(); err != nil {
		return err
	}
	if s.Precision < 0 || s.Precision > 17 {
		return fmt.Errorf("invalid precision: %d", s.Precision)
	}
	switch s.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q", s.LogFormat)
	}
	return nil
}
