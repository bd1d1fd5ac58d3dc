package rbp

import "fmt"

// State is the lifecycle state of a run.
type State uint8

const (
	Initializing State = iota
	Iterating
	Converged
	MaxIterationsReached
	Diverged
	// Aborted means a round hook or the context stopped the run.
	Aborted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max_iterations_reached"
	case Diverged:
		return "diverged"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s >= Converged
}
