package session

import (
	"bytes"
	"testing"
)

func TestRing_AppendAndSince(t *testing.T) {
	t.Parallel()

	r := newRing(4)
	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, r.Append([]byte{byte(i)}))
	}

	events, err := r.Since(ids[0])
	if err != nil {
		t.Fatalf("Since() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Since() len = %d, want 2", len(events))
	}
	if !bytes.Equal(events[0], []byte{1}) || !bytes.Equal(events[1], []byte{2}) {
		t.Fatalf("Since() = %v, want [[1] [2]]", events)
	}
}

func TestRing_SinceFromEmpty(t *testing.T) {
	t.Parallel()

	r := newRing(4)
	events, err := r.Since(-1)
	if err != nil {
		t.Fatalf("Since() error = %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("Since() len = %d, want 0", len(events))
	}
}

func TestRing_EvictsOldest(t *testing.T) {
	t.Parallel()

	r := newRing(2)
	for i := 0; i < 5; i++ {
		r.Append([]byte{byte(i)})
	}

	// Only ids 3 and 4 should remain buffered.
	events, err := r.Since(2)
	if err != nil {
		t.Fatalf("Since() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Since() len = %d, want 2", len(events))
	}
}

func TestRing_OutOfWindowResumeErrors(t *testing.T) {
	t.Parallel()

	r := newRing(2)
	for i := 0; i < 5; i++ {
		r.Append([]byte{byte(i)})
	}

	_, err := r.Since(0)
	if err != errOutOfWindow {
		t.Fatalf("Since(0) error = %v, want errOutOfWindow", err)
	}
}

func TestRing_BoundaryResumeIsInWindow(t *testing.T) {
	t.Parallel()

	r := newRing(2)
	for i := 0; i < 5; i++ {
		r.Append([]byte{byte(i)})
	}
	// Oldest remaining id is 3; resuming from 2 (oldest-1) is exactly the
	// boundary and must succeed, not be treated as out-of-window.
	events, err := r.Since(2)
	if err != nil {
		t.Fatalf("Since(2) error = %v, want nil", err)
	}
	if len(events) != 2 {
		t.Fatalf("Since(2) len = %d, want 2", len(events))
	}
}
