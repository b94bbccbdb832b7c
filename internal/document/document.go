package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ivlev/marionette/internal/history"
	"github.com/ivlev/marionette/internal/timeline"
)

// ErrDocumentFormat is returned for imported or persisted data that is structurally invalid
var ErrDocumentFormat = errors.New("document format error")

// Document is the import/export format of an animation
type Document struct {
	Keyframes []timeline.Keyframe `json:"keyframes" yaml:"keyframes"`
	Config    Config              `json:"config" yaml:"config"`
	Device    map[string]any      `json:"device,omitempty" yaml:"device,omitempty"` // optional device configuration block
}

// Config is the timeline config plus the playhead position
type Config struct {
	TotalFrames       int `json:"totalFrames" yaml:"totalFrames"`
	FPS               int `json:"fps" yaml:"fps"`
	CurrentFrameIndex int `json:"currentFrameIndex" yaml:"currentFrameIndex"`
}

// Timeline returns the axis part of the config
func (c Config) Timeline() timeline.Config {
	return timeline.Config{TotalFrames: c.TotalFrames, FPS: c.FPS}
}

// History is the persisted undo log: every entry is a full document
type History struct {
	History      []Document `json:"history"`
	HistoryIndex int        `json:"historyIndex"`
}

// FromSnapshot converts a history snapshot into a document
func FromSnapshot(s history.Snapshot) Document {
	s = s.Clone()
	return Document{
		Keyframes: s.Keyframes,
		Config: Config{
			TotalFrames:       s.Config.TotalFrames,
			FPS:               s.Config.FPS,
			CurrentFrameIndex: s.CurrentFrameIndex,
		},
	}
}

// Snapshot converts the document into a history snapshot. Duplicate frame
// indices collapse (last wins) and keyframes come out sorted.
func (d Document) Snapshot() history.Snapshot {
	return history.Snapshot{
		Keyframes:         timeline.NewKeyframeSet(d.Keyframes...).Keyframes(),
		Config:            d.Config.Timeline(),
		CurrentFrameIndex: d.Config.CurrentFrameIndex,
	}
}

// Validate checks the config and every keyframe. Keyframes beyond totalFrames
// are allowed: shrinking the axis never deletes them.
func (d Document) Validate() error {
	if err := d.Config.Timeline().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentFormat, err)
	}
	for i, kf := range d.Keyframes {
		if kf.FrameIndex < 0 {
			return fmt.Errorf("%w: keyframe %d has negative frameIndex %d", ErrDocumentFormat, i, kf.FrameIndex)
		}
		if kf.Values == nil {
			return fmt.Errorf("%w: keyframe %d has no values", ErrDocumentFormat, i)
		}
	}
	return nil
}

// Validate checks every entry and the cursor
func (h History) Validate() error {
	if h.HistoryIndex < 0 || h.HistoryIndex >= len(h.History) {
		return fmt.Errorf("%w: %d with %d entries", history.ErrInvalidHistoryIndex, h.HistoryIndex, len(h.History))
	}
	for i, d := range h.History {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("history entry %d: %w", i, err)
		}
	}
	return nil
}

// Snapshots converts every entry
func (h History) Snapshots() []history.Snapshot {
	out := make([]history.Snapshot, len(h.History))
	for i, d := range h.History {
		out[i] = d.Snapshot()
	}
	return out
}

// NewHistory builds the persisted form of a history stack
func NewHistory(entries []history.Snapshot, index int) History {
	h := History{History: make([]Document, len(entries)), HistoryIndex: index}
	for i, e := range entries {
		h.History[i] = FromSnapshot(e)
	}
	return h
}

// ParseHistory decodes a persisted history blob
func ParseHistory(data []byte) (History, error) {
	var raw struct {
		History      []Document `json:"history"`
		HistoryIndex *int       `json:"historyIndex"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return History{}, fmt.Errorf("%w: %v", ErrDocumentFormat, err)
	}
	if raw.History == nil || raw.HistoryIndex == nil {
		return History{}, fmt.Errorf("%w: missing 'history' or 'historyIndex'", ErrDocumentFormat)
	}
	return History{History: raw.History, HistoryIndex: *raw.HistoryIndex}, nil
}
