package timeline

import (
	"fmt"
	"maps"
	"sort"
)

// Pose maps a motor identifier to its target position
type Pose map[string]int

// Clone returns an independent copy of the pose
func (p Pose) Clone() Pose {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Keyframe represents a pose pinned to a frame index
type Keyframe struct {
	FrameIndex int  `json:"frameIndex" yaml:"frameIndex"`
	Values     Pose `json:"values" yaml:"values"`
}

// Clone returns a keyframe that shares no memory with k
func (k Keyframe) Clone() Keyframe {
	return Keyframe{FrameIndex: k.FrameIndex, Values: k.Values.Clone()}
}

// KeyframeSet keeps keyframes sorted ascending by frame index, one per index.
// The set does not know the axis length: callers validate bounds.
type KeyframeSet struct {
	items []Keyframe
}

// NewKeyframeSet builds a set from arbitrary keyframes. Later entries win
// when two share a frame index.
func NewKeyframeSet(keyframes ...Keyframe) *KeyframeSet {
	s := &KeyframeSet{}
	for _, kf := range keyframes {
		s.Upsert(kf.FrameIndex, kf.Values)
	}
	return s
}

// Len returns the number of keyframes
func (s *KeyframeSet) Len() int {
	return len(s.items)
}

// search returns the position of the first keyframe with index >= frame
func (s *KeyframeSet) search(frame int) int {
	return sort.Search(len(s.items), func(i int) bool {
		return s.items[i].FrameIndex >= frame
	})
}

// Upsert replaces the values at frameIndex or inserts a new keyframe there
func (s *KeyframeSet) Upsert(frameIndex int, values Pose) {
	i := s.search(frameIndex)
	if i < len(s.items) && s.items[i].FrameIndex == frameIndex {
		s.items[i].Values = values.Clone()
		return
	}
	s.items = append(s.items, Keyframe{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = Keyframe{FrameIndex: frameIndex, Values: values.Clone()}
}

// RemoveAt deletes the keyframe at frameIndex, reporting whether one existed
func (s *KeyframeSet) RemoveAt(frameIndex int) bool {
	i := s.search(frameIndex)
	if i >= len(s.items) || s.items[i].FrameIndex != frameIndex {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// RemoveMany deletes every listed frame index and returns how many were removed
func (s *KeyframeSet) RemoveMany(frameIndices []int) int {
	removed := 0
	for _, idx := range frameIndices {
		if s.RemoveAt(idx) {
			removed++
		}
	}
	return removed
}

// Find returns a copy of the keyframe at frameIndex
func (s *KeyframeSet) Find(frameIndex int) (Keyframe, bool) {
	i := s.search(frameIndex)
	if i < len(s.items) && s.items[i].FrameIndex == frameIndex {
		return s.items[i].Clone(), true
	}
	return Keyframe{}, false
}

// Neighbors returns the keyframe with the greatest index <= frameIndex and
// the keyframe with the smallest index > frameIndex. Either may be nil.
func (s *KeyframeSet) Neighbors(frameIndex int) (before, after *Keyframe) {
	i := s.search(frameIndex + 1)
	if i > 0 {
		kf := s.items[i-1].Clone()
		before = &kf
	}
	if i < len(s.items) {
		kf := s.items[i].Clone()
		after = &kf
	}
	return before, after
}

// First returns the earliest keyframe
func (s *KeyframeSet) First() (Keyframe, bool) {
	if len(s.items) == 0 {
		return Keyframe{}, false
	}
	return s.items[0].Clone(), true
}

// Last returns the latest keyframe
func (s *KeyframeSet) Last() (Keyframe, bool) {
	if len(s.items) == 0 {
		return Keyframe{}, false
	}
	return s.items[len(s.items)-1].Clone(), true
}

// Keyframes returns a deep copy of the sorted keyframes
func (s *KeyframeSet) Keyframes() []Keyframe {
	out := make([]Keyframe, len(s.items))
	for i, kf := range s.items {
		out[i] = kf.Clone()
	}
	return out
}

// Indices returns the sorted frame indices
func (s *KeyframeSet) Indices() []int {
	out := make([]int, len(s.items))
	for i, kf := range s.items {
		out[i] = kf.FrameIndex
	}
	return out
}

// Clone returns a deep copy of the set
func (s *KeyframeSet) Clone() *KeyframeSet {
	return &KeyframeSet{items: s.Keyframes()}
}

// Validate checks ordering, uniqueness and non-negative indices
func (s *KeyframeSet) Validate() error {
	for i, kf := range s.items {
		if kf.FrameIndex < 0 {
			return fmt.Errorf("keyframe %d: negative frame index %d", i, kf.FrameIndex)
		}
		if i > 0 && s.items[i-1].FrameIndex >= kf.FrameIndex {
			return fmt.Errorf("keyframe %d: frame index %d not after %d", i, kf.FrameIndex, s.items[i-1].FrameIndex)
		}
	}
	return nil
}
