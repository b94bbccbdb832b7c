package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivlev/marionette/internal/clipboard"
	"github.com/ivlev/marionette/internal/document"
	"github.com/ivlev/marionette/internal/history"
	"github.com/ivlev/marionette/internal/timeline"
)

// AdvanceFrame moves the playhead by delta, clamped to the axis
func (e *Editor) AdvanceFrame(delta int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.navigateLocked(e.cfg.Clamp(e.current + delta))
	return e.current
}

// Seek moves the playhead to frame
func (e *Editor) Seek(frame int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cfg.CheckFrame(frame); err != nil {
		return err
	}
	e.navigateLocked(frame)
	return nil
}

// AddOrUpdateKeyframe stores pose as the keyframe at the playhead
func (e *Editor) AddOrUpdateKeyframe(ctx context.Context, pose timeline.Pose) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cfg.CheckFrame(e.current); err != nil {
		return err
	}
	e.keyframes.Upsert(e.current, pose)
	e.sel.Update(e.current, e.keyframes.Indices())
	e.commitLocked(ctx)
	return nil
}

// RemoveSelected deletes every keyframe in the selection and clears it.
// It returns how many keyframes were removed.
func (e *Editor) RemoveSelected(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeSelectedLocked(ctx)
}

func (e *Editor) removeSelectedLocked(ctx context.Context) int {
	removed := e.keyframes.RemoveMany(e.sel.Frames())
	e.sel.Clear()
	if removed == 0 {
		e.refreshLocked()
		return 0
	}
	e.commitLocked(ctx)
	return removed
}

// BeginRange anchors a range selection at the playhead
func (e *Editor) BeginRange() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sel.Begin(e.current)
	e.navigateLocked(e.current)
}

// EndRange stops extending the range. The range stays selected.
func (e *Editor) EndRange() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sel.End()
	e.refreshLocked()
}

// Copy writes the selected keyframes to the clipboard and returns how many were copied
func (e *Editor) Copy(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyLocked(ctx)
}

func (e *Editor) copyLocked(ctx context.Context) (int, error) {
	payload, err := clipboard.Copy(e.keyframes, &e.sel)
	if err != nil {
		return 0, err
	}
	data, err := clipboard.Encode(payload)
	if err != nil {
		return 0, err
	}
	if err := e.clip.Write(ctx, data); err != nil {
		return 0, fmt.Errorf("write clipboard: %w", err)
	}
	return len(payload), nil
}

// Cut copies the selection and removes it. Nothing is removed if the copy fails.
func (e *Editor) Cut(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.copyLocked(ctx)
	if err != nil {
		return 0, err
	}
	e.removeSelectedLocked(ctx)
	return n, nil
}

// Paste inserts the clipboard contents with the first entry at the playhead.
// Either every entry lands on the axis or nothing changes.
func (e *Editor) Paste(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.clip.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read clipboard: %w", err)
	}
	if data == "" {
		return 0, nil
	}
	payload, err := clipboard.Decode(data)
	if err != nil {
		return 0, err
	}
	if len(payload) == 0 {
		return 0, nil
	}
	if err := clipboard.Paste(payload, e.current, e.keyframes, e.cfg); err != nil {
		return 0, err
	}
	e.sel.Update(e.current, e.keyframes.Indices())
	e.commitLocked(ctx)
	return len(payload), nil
}

// Undo restores the previous snapshot. It reports false at the start of history.
func (e *Editor) Undo(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.hist.Undo()
	if !ok {
		return false
	}
	e.restoreLocked(s)
	e.persistLocked(ctx)
	return true
}

// Redo re-applies the next snapshot. It reports false at the end of history.
func (e *Editor) Redo(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.hist.Redo()
	if !ok {
		return false
	}
	e.restoreLocked(s)
	e.persistLocked(ctx)
	return true
}

// ApplyConfig replaces the axis. Keyframes are kept as they are; the
// playhead is clamped into the new axis.
func (e *Editor) ApplyConfig(ctx context.Context, cfg timeline.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg = cfg
	e.current = cfg.Clamp(e.current)
	e.sel.Update(e.current, e.keyframes.Indices())
	e.commitLocked(ctx)
	return nil
}

// Import replaces keyframes and config with the document's. The playhead
// position from the document is used when it lies on the new axis.
func (e *Editor) Import(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: no document", document.ErrDocumentFormat)
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := doc.Snapshot()
	e.keyframes = snap.Set()
	e.cfg = snap.Config
	e.current = e.cfg.Clamp(snap.CurrentFrameIndex)
	e.sel.Clear()
	e.sel.Update(e.current, e.keyframes.Indices())
	e.commitLocked(ctx)
	return nil
}

// Export returns the live state as a document. With withDevice the device
// configuration block is attached when the device answers; a failing device
// is logged and the document is returned without it.
func (e *Editor) Export(ctx context.Context, withDevice bool) *document.Document {
	e.mu.Lock()
	doc := document.FromSnapshot(e.snapshotLocked())
	e.mu.Unlock()

	if !withDevice || e.device == nil {
		return &doc
	}
	block, err := e.device.DeviceConfig(ctx)
	if err != nil {
		e.log.WarnContext(ctx, "export without device config", "err", err)
		return &doc
	}
	doc.Device = block
	return &doc
}

// Load restores history from the store. Missing data leaves the fresh
// editor as is. Corrupt data resets to a single empty snapshot, which is
// saved over the bad blob, and the cause is returned. Any other read error
// is returned without touching the store or the in-memory state.
func (e *Editor) Load(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	h, err := e.store.Load(ctx)
	if err == nil && h != nil {
		err = h.Validate()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		if !isCorrupt(err) {
			// the stored blob may still be good, leave it alone
			e.log.ErrorContext(ctx, "failed to read stored history", "err", err)
			return fmt.Errorf("load history: %w", err)
		}
		e.log.WarnContext(ctx, "discarding stored history", "err", err)
		e.resetLocked(ctx)
		return fmt.Errorf("load history: %w", err)
	}
	if h == nil {
		return nil
	}

	if err := e.hist.Restore(h.Snapshots(), h.HistoryIndex); err != nil {
		e.resetLocked(ctx)
		return fmt.Errorf("load history: %w", err)
	}
	s, _ := e.hist.Current()
	e.restoreLocked(s)
	e.log.InfoContext(ctx, "history loaded", "entries", e.hist.Len(), "history_index", e.hist.Index())
	return nil
}

// isCorrupt reports whether a load error is about the stored data itself
func isCorrupt(err error) bool {
	return errors.Is(err, document.ErrDocumentFormat) || errors.Is(err, history.ErrInvalidHistoryIndex)
}

func (e *Editor) resetLocked(ctx context.Context) {
	e.keyframes = timeline.NewKeyframeSet()
	e.current = 0
	e.sel.Clear()
	e.hist = history.NewStack(e.snapshotLocked())
	e.navigateLocked(0)
	e.persistLocked(ctx)
}
