package planner

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lox/mdpplanner/internal/mdp"
)

// Metrics contains Prometheus collectors describing solves. Collectors live in
// a private registry so a batch run can dump them to a textfile.
type Metrics struct {
	registry *prometheus.Registry

	solves     *prometheus.CounterVec
	fallbacks  prometheus.Counter
	iterations *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
	states     prometheus.Gauge
	outcomes   prometheus.Gauge
}

// NewMetrics creates and registers the planner collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdpplanner_solves_total",
				Help: "Total number of solves by method and result",
			},
			[]string{"method", "result"},
		),
		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mdpplanner_lp_fallbacks_total",
				Help: "Policy iteration runs that fell back to the linear program",
			},
		),
		iterations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mdpplanner_last_iterations",
				Help: "Iterations or sweeps used by the most recent solve",
			},
			[]string{"method"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mdpplanner_solve_duration_seconds",
				Help:    "Wall time of solves",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"method"},
		),
		states: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mdpplanner_model_states",
				Help: "Number of states in the most recent model",
			},
		),
		outcomes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mdpplanner_model_transitions",
				Help: "Number of recorded transition triples in the most recent model",
			},
		),
	}
	m.registry.MustRegister(m.solves, m.fallbacks, m.iterations, m.duration, m.states, m.outcomes)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records one solve. res may be nil when err is set.
func (m *Metrics) Observe(model *mdp.Model, res *Result, err error) {
	m.states.Set(float64(model.NumStates))
	m.outcomes.Set(float64(model.TransitionCount()))

	method := "none"
	if res != nil {
		method = string(res.Method)
	}
	m.solves.WithLabelValues(method, resultLabel(err)).Inc()
	if res == nil {
		return
	}
	if res.FellBack {
		m.fallbacks.Inc()
	}
	m.iterations.WithLabelValues(method).Set(float64(res.Iterations))
	m.duration.WithLabelValues(method).Observe(res.Duration.Seconds())
}

// WriteTextfile dumps the current metrics in the node-exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotConverged):
		return "not_converged"
	case errors.Is(err, ErrLPFailed):
		return "lp_failed"
	case errors.Is(err, mdp.ErrProbabilitySum):
		return "invalid_model"
	default:
		return "error"
	}
}
