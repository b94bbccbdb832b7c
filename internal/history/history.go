package history

import (
	"errors"
	"fmt"

	"github.com/ivlev/marionette/internal/timeline"
)

// ErrInvalidHistoryIndex is returned when a restored cursor does not point into the entries
var ErrInvalidHistoryIndex = errors.New("invalid history index")

// Snapshot is a full capture of the timeline state
type Snapshot struct {
	Keyframes         []timeline.Keyframe
	Config            timeline.Config
	CurrentFrameIndex int
}

// Clone returns a snapshot that shares no memory with s
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Config:            s.Config,
		CurrentFrameIndex: s.CurrentFrameIndex,
		Keyframes:         make([]timeline.Keyframe, len(s.Keyframes)),
	}
	for i, kf := range s.Keyframes {
		out.Keyframes[i] = kf.Clone()
	}
	return out
}

// Set rebuilds a keyframe set from the snapshot
func (s Snapshot) Set() *timeline.KeyframeSet {
	return timeline.NewKeyframeSet(s.Keyframes...)
}

// Stack is a linear undo/redo log. Pushing after an undo drops the redo branch.
type Stack struct {
	entries []Snapshot
	index   int
}

// NewStack returns a stack holding one initial snapshot
func NewStack(initial Snapshot) *Stack {
	return &Stack{entries: []Snapshot{initial.Clone()}}
}

// Len returns the number of entries
func (s *Stack) Len() int {
	return len(s.entries)
}

// Index returns the cursor position
func (s *Stack) Index() int {
	return s.index
}

// Current returns a copy of the snapshot under the cursor
func (s *Stack) Current() (Snapshot, bool) {
	if len(s.entries) == 0 {
		return Snapshot{}, false
	}
	return s.entries[s.index].Clone(), true
}

// Push truncates everything after the cursor and appends a copy of snapshot
func (s *Stack) Push(snapshot Snapshot) {
	if len(s.entries) > 0 {
		s.entries = s.entries[:s.index+1]
	}
	s.entries = append(s.entries, snapshot.Clone())
	s.index = len(s.entries) - 1
}

// Undo moves the cursor back. At the first entry it is a no-op and reports false.
func (s *Stack) Undo() (Snapshot, bool) {
	if s.index <= 0 {
		cur, _ := s.Current()
		return cur, false
	}
	s.index--
	return s.entries[s.index].Clone(), true
}

// Redo moves the cursor forward. At the last entry it is a no-op and reports false.
func (s *Stack) Redo() (Snapshot, bool) {
	if s.index >= len(s.entries)-1 {
		cur, _ := s.Current()
		return cur, false
	}
	s.index++
	return s.entries[s.index].Clone(), true
}

// Entries returns copies of every snapshot, oldest first
func (s *Stack) Entries() []Snapshot {
	out := make([]Snapshot, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Restore replaces the stack contents. The stack is left unchanged on error.
func (s *Stack) Restore(entries []Snapshot, index int) error {
	if index < 0 || index >= len(entries) {
		return fmt.Errorf("%w: %d with %d entries", ErrInvalidHistoryIndex, index, len(entries))
	}
	restored := make([]Snapshot, len(entries))
	for i, e := range entries {
		restored[i] = e.Clone()
	}
	s.entries = restored
	s.index = index
	return nil
}
