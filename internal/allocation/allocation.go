// Package allocation assigns ciphertext chunks to carrier frames.
//
// Chunks are placed on frames 0, 1, 2, ... in order. The Policy decides what
// happens when a video has fewer frames than there are chunks.
package allocation

import (
	"fmt"
	"strings"

	"framecloak/internal/services"
)

// Policy controls overflow handling.
type Policy int

const (
	// PolicyReject refuses to allocate when chunks outnumber frames.
	PolicyReject Policy = iota
	// PolicyTruncate embeds the leading chunks and drops the rest. The dropped
	// data cannot be recovered on decode.
	PolicyTruncate
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "error", "reject":
		return PolicyReject, nil
	case "truncate":
		return PolicyTruncate, nil
	default:
		return PolicyReject, fmt.Errorf("unknown overflow policy %q", value)
	}
}

func (p Policy) String() string {
	if p == PolicyTruncate {
		return "truncate"
	}
	return "error"
}

// Assignment pairs a chunk with the frame that carries it.
type Assignment struct {
	Frame int
	Chunk string
}

// Plan is the outcome of an allocation.
type Plan struct {
	Assignments []Assignment
	// Dropped counts trailing chunks left out under PolicyTruncate.
	Dropped int
}

// Indices returns the frame indices in assignment order.
func (p Plan) Indices() []int {
	out := make([]int, len(p.Assignments))
	for i, a := range p.Assignments {
		out[i] = a.Frame
	}
	return out
}

// Allocate maps chunks to frames 0..min(len(chunks), frames)-1.
func Allocate(chunks []string, frames int, policy Policy) (Plan, error) {
	if frames < 0 {
		frames = 0
	}
	if len(chunks) > frames && policy != PolicyTruncate {
		return Plan{}, services.Wrap(
			services.ErrCapacity,
			"allocate",
			"assign chunks",
			fmt.Sprintf("%d chunks do not fit in %d frames", len(chunks), frames),
			nil,
		)
	}

	n := min(len(chunks), frames)
	plan := Plan{
		Assignments: make([]Assignment, n),
		Dropped:     len(chunks) - n,
	}
	for i := 0; i < n; i++ {
		plan.Assignments[i] = Assignment{Frame: i, Chunk: chunks[i]}
	}
	return plan, nil
}
