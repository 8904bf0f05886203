package pipeline

import (
	"context"
	"errors"
	"fmt"

	"packflow/internal/catalog"
)

// Handler executes one transition against a package. Handlers mutate the
// in-memory package and persist their own domain fields; the runner owns
// state, lastState, lastTransition and errorCode persistence.
type Handler func(ctx context.Context, pkg *catalog.Package) error

// Edge authorizes a transition between two stable states.
type Edge struct {
	From catalog.State
	To   catalog.State
}

// Definition declares a package kind's pipeline: the ordered transition
// stack, the state edge per transition, and the transient state shown
// while a transition runs.
type Definition struct {
	Stack      []catalog.Transition
	Edges      map[catalog.Transition]Edge
	Processing map[catalog.Transition]catalog.State
}

// Validate checks that every stacked transition has an authorized edge and
// that consecutive edges chain: each transition must start from the state
// the previous one ended in.
func (d Definition) Validate() error {
	if len(d.Stack) == 0 {
		return errors.New("empty transition stack")
	}
	previous := catalog.State("")
	for i, transition := range d.Stack {
		edge, ok := d.Edges[transition]
		if !ok {
			return fmt.Errorf("transition %s has no edge", transition)
		}
		if i > 0 && edge.From != previous {
			return fmt.Errorf("transition %s starts from %s but %s ends in %s",
				transition, edge.From, d.Stack[i-1], previous)
		}
		previous = edge.To
	}
	return nil
}

// StartIndex locates the resume position for a persisted lastTransition.
// An unknown or empty transition restarts from the top of the stack.
func (d Definition) StartIndex(last catalog.Transition) int {
	if last == "" {
		return 0
	}
	for i, transition := range d.Stack {
		if transition == last {
			return i
		}
	}
	return 0
}

// Concat builds a definition by layering overlays onto a base: overlay
// edges and processing states replace the base's, and the overlay stack
// replaces the base stack when provided. This is how a specialized package
// kind extends the plain video pipeline.
func Concat(base Definition, overlay Definition) Definition {
	combined := Definition{
		Stack:      base.Stack,
		Edges:      make(map[catalog.Transition]Edge, len(base.Edges)+len(overlay.Edges)),
		Processing: make(map[catalog.Transition]catalog.State, len(base.Processing)+len(overlay.Processing)),
	}
	for transition, edge := range base.Edges {
		combined.Edges[transition] = edge
	}
	for transition, edge := range overlay.Edges {
		combined.Edges[transition] = edge
	}
	for transition, state := range base.Processing {
		combined.Processing[transition] = state
	}
	for transition, state := range overlay.Processing {
		combined.Processing[transition] = state
	}
	if len(overlay.Stack) > 0 {
		combined.Stack = overlay.Stack
	}
	return combined
}
