package history

import (
	"errors"
	"testing"

	"github.com/ivlev/marionette/internal/timeline"
)

func snap(frame int) Snapshot {
	return Snapshot{
		Keyframes:         []timeline.Keyframe{{FrameIndex: frame, Values: timeline.Pose{"m": frame}}},
		Config:            timeline.DefaultConfig(),
		CurrentFrameIndex: frame,
	}
}

func TestUndoRedoAtEndsAreNoOps(t *testing.T) {
	s := NewStack(snap(0))

	if got, ok := s.Undo(); ok || got.CurrentFrameIndex != 0 || s.Index() != 0 {
		t.Errorf("Undo at 0: ok=%v frame=%d index=%d", ok, got.CurrentFrameIndex, s.Index())
	}

	s.Push(snap(1))
	if got, ok := s.Redo(); ok || got.CurrentFrameIndex != 1 || s.Index() != 1 {
		t.Errorf("Redo at end: ok=%v frame=%d index=%d", ok, got.CurrentFrameIndex, s.Index())
	}
}

func TestBranchDiscard(t *testing.T) {
	var s Stack
	s.Push(snap(1))
	s.Push(snap(2))
	s.Push(snap(3))
	s.Undo()
	s.Undo()
	s.Push(snap(4))

	if s.Len() != 2 {
		t.Fatalf("Expected length 2, got %d", s.Len())
	}
	if _, ok := s.Redo(); ok {
		t.Error("Redo must be impossible after branching")
	}
	cur, _ := s.Current()
	if cur.CurrentFrameIndex != 4 {
		t.Errorf("Expected current 4, got %d", cur.CurrentFrameIndex)
	}
	prev, ok := s.Undo()
	if !ok || prev.CurrentFrameIndex != 1 {
		t.Errorf("Expected undo to 1, got %d (ok=%v)", prev.CurrentFrameIndex, ok)
	}
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	live := snap(5)
	s := NewStack(live)

	live.Keyframes[0].Values["m"] = 999
	got, _ := s.Current()
	if got.Keyframes[0].Values["m"] != 5 {
		t.Fatalf("pushed snapshot aliased live state: %v", got.Keyframes[0].Values)
	}

	got.Keyframes[0].Values["m"] = 111
	again, _ := s.Current()
	if again.Keyframes[0].Values["m"] != 5 {
		t.Errorf("returned snapshot aliased history: %v", again.Keyframes[0].Values)
	}
}

func TestRestore(t *testing.T) {
	s := NewStack(snap(0))

	err := s.Restore([]Snapshot{snap(1), snap(2)}, 2)
	if !errors.Is(err, ErrInvalidHistoryIndex) {
		t.Fatalf("Expected ErrInvalidHistoryIndex, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("stack changed on failed restore: len %d", s.Len())
	}

	if err := s.Restore([]Snapshot{snap(1), snap(2)}, 0); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || s.Index() != 0 {
		t.Errorf("unexpected state len=%d index=%d", s.Len(), s.Index())
	}
	if err := s.Restore(nil, 0); !errors.Is(err, ErrInvalidHistoryIndex) {
		t.Errorf("Expected ErrInvalidHistoryIndex for empty history, got %v", err)
	}
}
