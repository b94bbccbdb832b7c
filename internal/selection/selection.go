// Package selection tracks the scrubbed frame and the modifier-driven range
// of keyframes between an anchor and the current frame.
package selection

import (
	"slices"
)

// Model is the editor's selection. The zero value is idle with nothing selected.
type Model struct {
	current *int
	anchor  int
	ranging bool
	rng     []int
}

// Ranging reports whether the range modifier is held
func (m *Model) Ranging() bool {
	return m.ranging
}

// Current returns the scrubbed frame, if any
func (m *Model) Current() (int, bool) {
	if m.current == nil {
		return 0, false
	}
	return *m.current, true
}

// Anchor returns the frame captured when ranging started
func (m *Model) Anchor() (int, bool) {
	return m.anchor, m.ranging
}

// Range returns the selected interior keyframe indices, ascending
func (m *Model) Range() []int {
	return slices.Clone(m.rng)
}

// Begin enters ranging mode anchored at frame. A new session drops the old range.
func (m *Model) Begin(anchor int) {
	m.ranging = true
	m.anchor = anchor
	m.rng = nil
}

// End leaves ranging mode. The last computed range is kept for copy/cut.
func (m *Model) End() {
	m.ranging = false
}

// Update moves the current frame. While ranging, the range becomes every
// keyframe index strictly between the anchor and the current frame.
func (m *Model) Update(current int, keyframeIndices []int) {
	m.current = &current
	if !m.ranging {
		return
	}

	lo, hi := min(m.anchor, current), max(m.anchor, current)
	m.rng = m.rng[:0]
	for _, idx := range keyframeIndices {
		if idx > lo && idx < hi {
			m.rng = append(m.rng, idx)
		}
	}
	slices.Sort(m.rng)
}

// Clear drops the current frame and the range. Ranging mode is left as is.
func (m *Model) Clear() {
	m.current = nil
	m.rng = nil
}

// Contains reports whether frame is the current frame or part of the range
func (m *Model) Contains(frame int) bool {
	if m.current != nil && *m.current == frame {
		return true
	}
	_, found := slices.BinarySearch(m.rng, frame)
	return found
}

// Frames returns current ∪ range, ascending and without duplicates
func (m *Model) Frames() []int {
	out := slices.Clone(m.rng)
	if m.current != nil {
		out = append(out, *m.current)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
