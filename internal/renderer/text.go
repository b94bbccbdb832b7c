// Package renderer draws editor state: a terminal status line, a PNG
// timeline strip and the share QR code.
package renderer

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/ivlev/marionette/internal/editor"
	"github.com/ivlev/marionette/internal/timeline"
)

// Text writes one status line per state change
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) Render(s editor.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, FormatState(s))
}

// FormatState renders state as a single line
func FormatState(s editor.State) string {
	var b strings.Builder

	marker := " "
	if s.Playing {
		marker = ">"
	}
	fmt.Fprintf(&b, "[%s] frame %d/%d", marker, s.FrameIndex, s.Config.TotalFrames)
	if _, ok := findKeyframe(s.Keyframes, s.FrameIndex); ok {
		b.WriteString(" *")
	}

	if pose := FormatPose(s.Pose); pose != "" {
		b.WriteString("  ")
		b.WriteString(pose)
	}

	if len(s.Selected) > 0 {
		sel := make([]string, len(s.Selected))
		for i, f := range s.Selected {
			sel[i] = strconv.Itoa(f)
		}
		fmt.Fprintf(&b, "  sel=%s", strings.Join(sel, ","))
	}
	if s.Ranging {
		b.WriteString(" (range)")
	}
	fmt.Fprintf(&b, "  history %d/%d", s.HistoryIndex+1, s.HistoryLen)
	return b.String()
}

// FormatPose prints motors sorted by name
func FormatPose(p timeline.Pose) string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, p[name])
	}
	return strings.Join(parts, " ")
}

func findKeyframe(keyframes []timeline.Keyframe, frame int) (timeline.Keyframe, bool) {
	i, ok := slices.BinarySearchFunc(keyframes, frame, func(kf timeline.Keyframe, f int) int {
		return kf.FrameIndex - f
	})
	if !ok {
		return timeline.Keyframe{}, false
	}
	return keyframes[i], true
}
