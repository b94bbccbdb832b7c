package clipboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ivlev/marionette/internal/selection"
	"github.com/ivlev/marionette/internal/timeline"
)

// ErrClipboardFormat is returned for payloads that cannot be parsed or are structurally invalid
var ErrClipboardFormat = errors.New("clipboard format error")

// Entry is a copied keyframe whose FrameIndex is an offset from the first copied frame
type Entry = timeline.Keyframe

// Payload is an ordered, position-independent list of copied keyframes
type Payload []Entry

// Transport stores the serialized payload (system clipboard, local storage, ...)
type Transport interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, data string) error
}

// Copy collects the keyframes at the selected frames and normalises their
// indices so that the earliest one sits at offset 0.
func Copy(set *timeline.KeyframeSet, sel *selection.Model) (Payload, error) {
	var payload Payload
	for _, kf := range set.Keyframes() {
		if sel.Contains(kf.FrameIndex) {
			payload = append(payload, kf)
		}
	}
	if len(payload) == 0 {
		return nil, timeline.ErrEmptySelection
	}

	// keyframes come sorted, the first one is the minimum
	base := payload[0].FrameIndex
	for i := range payload {
		payload[i].FrameIndex -= base
	}
	return payload, nil
}

// Paste upserts every entry at target+offset. All targets are checked against
// the axis first, so on error the set is left untouched.
func Paste(payload Payload, target int, set *timeline.KeyframeSet, cfg timeline.Config) error {
	for _, e := range payload {
		if err := cfg.CheckFrame(target + e.FrameIndex); err != nil {
			return fmt.Errorf("paste at %d: %w", target, err)
		}
	}
	for _, e := range payload {
		set.Upsert(target+e.FrameIndex, e.Values)
	}
	return nil
}

// rawEntry keeps pointers so missing fields can be told apart from zero values
type rawEntry struct {
	FrameIndex *int           `json:"frameIndex"`
	Values     map[string]int `json:"values"`
}

// Encode serializes the payload as a JSON array
func Encode(payload Payload) (string, error) {
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a payload produced by Encode
func Decode(data string) (Payload, error) {
	var raw []rawEntry
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClipboardFormat, err)
	}

	payload := make(Payload, 0, len(raw))
	for i, r := range raw {
		if r.FrameIndex == nil {
			return nil, fmt.Errorf("%w: entry %d has no frameIndex", ErrClipboardFormat, i)
		}
		if r.Values == nil {
			return nil, fmt.Errorf("%w: entry %d has no values", ErrClipboardFormat, i)
		}
		if *r.FrameIndex < 0 {
			return nil, fmt.Errorf("%w: entry %d has negative offset %d", ErrClipboardFormat, i, *r.FrameIndex)
		}
		payload = append(payload, Entry{FrameIndex: *r.FrameIndex, Values: r.Values})
	}
	return payload, nil
}

// MemoryTransport keeps the clipboard in process memory
type MemoryTransport struct {
	mu   sync.Mutex
	data string
}

func (m *MemoryTransport) Read(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *MemoryTransport) Write(ctx context.Context, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}
