package timeline

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRangeFrame is returned when a seek or paste target lies outside the axis
	ErrOutOfRangeFrame = errors.New("frame out of range")
	// ErrEmptySelection is returned by copy and cut when nothing is selected
	ErrEmptySelection = errors.New("empty selection")
	// ErrInvalidConfig is returned for non-positive totalFrames or fps
	ErrInvalidConfig = errors.New("invalid timeline config")
)

// Config defines the frame axis length and the nominal playback rate
type Config struct {
	TotalFrames int `json:"totalFrames" yaml:"totalFrames"`
	FPS         int `json:"fps" yaml:"fps"`
}

// DefaultConfig matches the editor's initial axis
func DefaultConfig() Config {
	return Config{TotalFrames: 100, FPS: 10}
}

// Validate checks that both values are positive
func (c Config) Validate() error {
	if c.TotalFrames <= 0 {
		return fmt.Errorf("%w: totalFrames must be > 0, got %d", ErrInvalidConfig, c.TotalFrames)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps must be > 0, got %d", ErrInvalidConfig, c.FPS)
	}
	return nil
}

// Contains reports whether frame lies on [0, TotalFrames)
func (c Config) Contains(frame int) bool {
	return frame >= 0 && frame < c.TotalFrames
}

// CheckFrame returns ErrOutOfRangeFrame for frames outside the axis
func (c Config) CheckFrame(frame int) error {
	if !c.Contains(frame) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRangeFrame, frame, c.TotalFrames)
	}
	return nil
}

// Clamp pins frame to [0, TotalFrames-1]
func (c Config) Clamp(frame int) int {
	frame = min(frame, c.TotalFrames-1)
	return max(frame, 0)
}

// Duration returns the length of one cycle in seconds
func (c Config) Duration() float64 {
	if c.FPS <= 0 {
		return 0
	}
	return float64(c.TotalFrames) / float64(c.FPS)
}
