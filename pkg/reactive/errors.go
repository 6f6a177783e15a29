package reactive

import "fmt"

// CycleError reports a circular dependency: a computation re-entered its
// own evaluation, directly or through a chain of other computations.
//
// The error is raised as a panic from the Get call that closed the cycle.
// The system's tracking state is fully unwound before the panic
// propagates, so unrelated reads keep working afterwards.
type CycleError struct {
	// NodeID is the computation whose re-entry closed the cycle.
	NodeID uint64

	// Path holds the IDs of the computations that were active when the
	// cycle was detected, outermost first.
	Path []uint64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reactive: circular dependency detected at node %d (active chain %v)", e.NodeID, e.Path)
}

// EvalError wraps a panic raised by a derivation or effect body. The
// error-isolating executor restores all tracking state, then re-panics
// the recovered value wrapped in an EvalError so the caller of Get (or
// Set, for effects triggered by a write) can attribute the failure.
type EvalError struct {
	// NodeID is the computation whose body panicked.
	NodeID uint64

	// Value is the recovered panic value.
	Value any
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("reactive: node %d panicked: %v", e.NodeID, e.Value)
}

// Unwrap exposes the panic value for errors.Is/As when it was an error.
func (e *EvalError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
