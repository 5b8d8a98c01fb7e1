package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/lox/mdpplanner/internal/mdp"
)

func TestMetricsObserve(t *testing.T) {
	m := parseModel(t, selfLoopMDP)

	tests := []struct {
		name   string
		res    *Result
		err    error
		method string
		result string
	}{
		{"ok", &Result{Method: MethodHPI, Iterations: 3, Duration: time.Millisecond}, nil, "hpi", "ok"},
		{"fallback", &Result{Method: MethodLP, FellBack: true, Iterations: 1}, nil, "lp", "ok"},
		{"lp failure", nil, fmt.Errorf("wrapped: %w", ErrLPFailed), "none", "lp_failed"},
		{"invalid model", nil, mdp.ErrProbabilitySum, "none", "invalid_model"},
		{"partial", &Result{Method: MethodIterative}, &NotConvergedError{Stage: "x"}, "iterative", "not_converged"},
	}

	metrics := NewMetrics()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.solves.WithLabelValues(tt.method, tt.result))
			metrics.Observe(m, tt.res, tt.err)
			after := testutil.ToFloat64(metrics.solves.WithLabelValues(tt.method, tt.result))
			assert.Equal(t, before+1, after)
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fallbacks))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.iterations.WithLabelValues("hpi")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.states))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes))
}
