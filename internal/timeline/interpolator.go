package timeline

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Interpolate calculates the pose at frame by blending the surrounding keyframes.
//
// Before the first keyframe the first pose is held. After the last keyframe the
// axis wraps: the earliest keyframe is treated as if it sat one full cycle ahead,
// so the pose eases back towards it. Motors missing from either side are skipped.
// Past the last keyframe this intentionally differs from the web editor, which
// placed the wrap target at TotalFrames+1.
func Interpolate(set *KeyframeSet, cfg Config, frame int) Pose {
	before, after := set.Neighbors(frame)

	if before == nil && after == nil {
		return nil
	}

	if before == nil {
		return after.Values.Clone()
	}

	if before.FrameIndex == frame {
		return before.Values.Clone()
	}

	if after == nil {
		first, _ := set.First()
		after = &Keyframe{
			FrameIndex: cfg.TotalFrames + first.FrameIndex,
			Values:     first.Values,
		}
	}

	span := after.FrameIndex - before.FrameIndex
	if span <= 0 {
		// keyframes left beyond a shrunken axis
		return before.Values.Clone()
	}

	progress := float64(frame-before.FrameIndex) / float64(span)
	progress = math.Max(0, math.Min(1, progress))

	out := make(Pose, len(before.Values))
	for motor, start := range before.Values {
		end, ok := after.Values[motor]
		if !ok {
			continue
		}
		out[motor] = roundHalfUp(lerp(float64(start), float64(end), progress))
	}
	return out
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// roundHalfUp rounds .5 towards positive infinity
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Bake returns the interpolated pose for every frame of the axis
func Bake(set *KeyframeSet, cfg Config) []Pose {
	if cfg.TotalFrames <= 0 {
		return nil
	}
	out := make([]Pose, cfg.TotalFrames)
	for i := range out {
		out[i] = Interpolate(set, cfg, i)
	}
	return out
}

// Upsample multiplies the frame rate, the axis length and every keyframe index
// by factor, keeping the animation's duration unchanged.
func Upsample(set *KeyframeSet, cfg Config, factor int) (*KeyframeSet, Config, error) {
	if factor <= 0 {
		return nil, cfg, fmt.Errorf("upsample factor must be > 0, got %d", factor)
	}
	scaled := make([]Keyframe, 0, set.Len())
	for _, kf := range set.Keyframes() {
		kf.FrameIndex *= factor
		scaled = append(scaled, kf)
	}
	cfg.FPS *= factor
	cfg.TotalFrames *= factor
	return NewKeyframeSet(scaled...), cfg, nil
}

// PoseFromInputs turns raw control values (as submitted by a form or typed on
// the command line) into a pose. Every value must be an integer.
func PoseFromInputs(raw map[string]string) (Pose, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	pose := make(Pose, len(raw))
	for _, name := range names {
		motor := strings.TrimSpace(name)
		if motor == "" {
			return nil, fmt.Errorf("empty motor name")
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw[name]))
		if err != nil {
			return nil, fmt.Errorf("motor %s: %w", motor, err)
		}
		pose[motor] = v
	}
	return pose, nil
}
