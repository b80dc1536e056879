package allocation

import (
	"errors"
	"testing"

	"framecloak/internal/services"
)

func TestAllocateInOrder(t *testing.T) {
	plan, err := Allocate([]string{"a", "b", "c"}, 10, PolicyReject)
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if plan.Dropped != 0 {
		t.Fatalf("expected no dropped chunks, got %d", plan.Dropped)
	}
	for i, a := range plan.Assignments {
		if a.Frame != i {
			t.Fatalf("assignment %d: expected frame %d, got %d", i, i, a.Frame)
		}
	}
	if plan.Assignments[2].Chunk != "c" {
		t.Fatalf("expected chunk c on frame 2, got %q", plan.Assignments[2].Chunk)
	}
}

func TestAllocateRejectsOverflow(t *testing.T) {
	_, err := Allocate([]string{"a", "b", "c"}, 2, PolicyReject)
	if err == nil {
		t.Fatal("expected capacity error")
	}
	if !errors.Is(err, services.ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
}

func TestAllocateTruncates(t *testing.T) {
	plan, err := Allocate([]string{"a", "b", "c", "d"}, 2, PolicyTruncate)
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if len(plan.Assignments) != 2 || plan.Dropped != 2 {
		t.Fatalf("expected 2 assignments and 2 dropped, got %d/%d", len(plan.Assignments), plan.Dropped)
	}
	if plan.Assignments[1].Chunk != "b" {
		t.Fatalf("expected prefix chunks to survive, got %q", plan.Assignments[1].Chunk)
	}
}

func TestAllocateIndicesStrictlyIncreasing(t *testing.T) {
	for chunks := 0; chunks <= 12; chunks++ {
		for frames := 0; frames <= 12; frames++ {
			input := make([]string, chunks)
			for i := range input {
				input[i] = "x"
			}
			plan, err := Allocate(input, frames, PolicyTruncate)
			if err != nil {
				t.Fatalf("chunks=%d frames=%d: %v", chunks, frames, err)
			}
			indices := plan.Indices()
			if len(indices) != min(chunks, frames) {
				t.Fatalf("chunks=%d frames=%d: expected %d indices, got %d", chunks, frames, min(chunks, frames), len(indices))
			}
			for i, idx := range indices {
				if idx != i {
					t.Fatalf("chunks=%d frames=%d: index %d = %d", chunks, frames, i, idx)
				}
			}
		}
	}
}

func TestAllocateEmpty(t *testing.T) {
	plan, err := Allocate(nil, 0, PolicyReject)
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if len(plan.Assignments) != 0 || len(plan.Indices()) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{"": PolicyReject, "error": PolicyReject, " Truncate ": PolicyTruncate}
	for input, want := range cases {
		got, err := ParsePolicy(input)
		if err != nil {
			t.Fatalf("ParsePolicy(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParsePolicy(%q) = %v, want %v", input, got, want)
		}
	}
	if _, err := ParsePolicy("drop"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
