package report

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lox/mdpplanner/internal/fileutil"
	"github.com/lox/mdpplanner/internal/mdp"
	"github.com/lox/mdpplanner/internal/planner"
)

// Run is the document written by --report, as YAML or TOML.
type Run struct {
	RunID       string    `yaml:"run_id" toml:"run_id"`
	GeneratedAt time.Time `yaml:"generated_at" toml:"generated_at"`
	Model       Model     `yaml:"model" toml:"model"`
	Solve       Solve     `yaml:"solve" toml:"solve"`
	Values      Values    `yaml:"values" toml:"values"`
}

// Model describes the solved MDP.
type Model struct {
	Path        string  `yaml:"path,omitempty" toml:"path,omitempty"`
	States      int     `yaml:"states" toml:"states"`
	Actions     int     `yaml:"actions" toml:"actions"`
	Kind        string  `yaml:"kind" toml:"kind"`
	Discount    float64 `yaml:"discount" toml:"discount"`
	Terminals   int     `yaml:"terminals" toml:"terminals"`
	Transitions int     `yaml:"transitions" toml:"transitions"`
}

// Solve records which method produced the values and how it went.
type Solve struct {
	Method     string  `yaml:"method" toml:"method"`
	Requested  string  `yaml:"requested" toml:"requested"`
	FellBack   bool    `yaml:"fell_back" toml:"fell_back"`
	Converged  bool    `yaml:"converged" toml:"converged"`
	Iterations int     `yaml:"iterations" toml:"iterations"`
	Seconds    float64 `yaml:"duration_seconds" toml:"duration_seconds"`
}

// Values is the range of values over non-terminal states.
type Values struct {
	Min float64 `yaml:"min" toml:"min"`
	Max float64 `yaml:"max" toml:"max"`
}

// NewRun collects the report for one solve of the model loaded from path.
func NewRun(path string, m *mdp.Model, res *planner.Result, now time.Time) *Run {
	lo, hi := valueRange(res.Values, m)
	return &Run{
		RunID:       res.RunID,
		GeneratedAt: now.UTC(),
		Model: Model{
			Path:        path,
			States:      m.NumStates,
			Actions:     m.NumActions,
			Kind:        m.Kind.String(),
			Discount:    m.Discount,
			Terminals:   len(m.Terminals()),
			Transitions: m.TransitionCount(),
		},
		Solve: Solve{
			Method:     string(res.Method),
			Requested:  res.Requested.String(),
			FellBack:   res.FellBack,
			Converged:  res.Converged,
			Iterations: res.Iterations,
			Seconds:    res.Duration.Seconds(),
		},
		Values: Values{Min: lo, Max: hi},
	}
}

// Encode writes the report as YAML.
func (r *Run) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// EncodeTOML writes the report as TOML.
func (r *Run) EncodeTOML(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = "  "
	return enc.Encode(r)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// WriteFile atomically replaces path with the report. A .toml extension
// selects TOML, anything else YAML.
func (r *Run) WriteFile(path string) error {
	encode := r.Encode
	if isTOML(path) {
		encode = r.EncodeTOML
	}
	return fileutil.WriteAtomic(path, 0o644, encode)
}

// ReadRun loads a report written by WriteFile.
func ReadRun(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Run
	if isTOML(path) {
		err = toml.Unmarshal(data, &r)
	} else {
		err = yaml.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
