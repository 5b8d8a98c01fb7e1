package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrLPFailed wraps any failure of the linear-programming backend. A
	// well-formed MDP is always feasible, so this points at bad input data.
	ErrLPFailed = errors.New("lp solve failed")

	// ErrNotConverged is matched by NotConvergedError.
	ErrNotConverged = errors.New("did not converge")
)

// NotConvergedError reports a loop that hit its iteration cap.
type NotConvergedError struct {
	Stage      string
	Iterations int
	// Residual is the last sup-norm change, or the number of policy changes
	// in the final round for policy iteration.
	Residual float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("%s did not converge after %d iterations (residual %.3g)", e.Stage, e.Iterations, e.Residual)
}

func (e *NotConvergedError) Unwrap() error {
	return ErrNotConverged
}
