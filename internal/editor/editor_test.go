package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/marionette/internal/clipboard"
	"github.com/ivlev/marionette/internal/document"
	"github.com/ivlev/marionette/internal/history"
	"github.com/ivlev/marionette/internal/timeline"
)

type memStore struct {
	mu      sync.Mutex
	saved   *document.History
	loadErr error
	saves   int
}

func (m *memStore) Load(ctx context.Context) (*document.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, m.loadErr
}

func (m *memStore) Save(ctx context.Context, h document.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = &h
	m.saves++
	return nil
}

type fakeDevice struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	index    int
	started  *document.Document
	polls    int
	config   map[string]any
}

func (d *fakeDevice) StartPlayback(ctx context.Context, doc *document.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started = doc
	return nil
}

func (d *fakeDevice) StopPlayback(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopErr
}

func (d *fakeDevice) PollCurrentIndex(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.polls++
	return d.index, nil
}

func (d *fakeDevice) DeviceConfig(ctx context.Context) (map[string]any, error) {
	if d.config == nil {
		return nil, errors.New("unreachable")
	}
	return d.config, nil
}

func (d *fakeDevice) setIndex(i int) {
	d.mu.Lock()
	d.index = i
	d.mu.Unlock()
}

func (d *fakeDevice) pollCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}

type countingRenderer struct {
	calls int
	last  State
}

func (r *countingRenderer) Render(s State) {
	r.calls++
	r.last = s
}

func addAt(t *testing.T, e *Editor, frame int, pose timeline.Pose) {
	t.Helper()
	if err := e.Seek(frame); err != nil {
		t.Fatalf("Seek(%d) failed: %v", frame, err)
	}
	if err := e.AddOrUpdateKeyframe(context.Background(), pose); err != nil {
		t.Fatalf("AddOrUpdateKeyframe failed: %v", err)
	}
}

func TestInterpolatedPoseFollowsPlayhead(t *testing.T) {
	e := New()
	addAt(t, e, 10, timeline.Pose{"m": 0})
	addAt(t, e, 20, timeline.Pose{"m": 100})

	tests := []struct {
		frame int
		want  int
	}{
		{15, 50},
		{10, 0},
		{20, 100},
		{65, 50},
	}
	for _, tt := range tests {
		if err := e.Seek(tt.frame); err != nil {
			t.Fatal(err)
		}
		if got := e.State().Pose["m"]; got != tt.want {
			t.Errorf("frame %d: pose m = %d, want %d", tt.frame, got, tt.want)
		}
	}
}

func TestNavigationClampsAndRejects(t *testing.T) {
	e := New(WithConfig(timeline.Config{TotalFrames: 10, FPS: 10}))

	if got := e.AdvanceFrame(-3); got != 0 {
		t.Errorf("AdvanceFrame below start = %d", got)
	}
	if got := e.AdvanceFrame(25); got != 9 {
		t.Errorf("AdvanceFrame past end = %d", got)
	}
	if err := e.Seek(10); !errors.Is(err, timeline.ErrOutOfRangeFrame) {
		t.Errorf("Expected ErrOutOfRangeFrame, got %v", err)
	}
	if e.State().FrameIndex != 9 {
		t.Error("failed Seek moved the playhead")
	}
	if e.State().HistoryLen != 1 {
		t.Error("navigation must not record history")
	}
}

func TestUndoRedo(t *testing.T) {
	e := New()
	ctx := context.Background()
	addAt(t, e, 5, timeline.Pose{"m": 1})
	addAt(t, e, 7, timeline.Pose{"m": 2})

	if !e.Undo(ctx) {
		t.Fatal("Undo returned false")
	}
	s := e.State()
	if len(s.Keyframes) != 1 || s.FrameIndex != 5 {
		t.Errorf("after undo: %+v", s)
	}

	if !e.Redo(ctx) {
		t.Fatal("Redo returned false")
	}
	if len(e.State().Keyframes) != 2 {
		t.Error("redo did not restore keyframe")
	}
	if e.Redo(ctx) {
		t.Error("Redo at the end should be a no-op")
	}

	// a new edit after undo discards the redo branch
	e.Undo(ctx)
	e.Undo(ctx)
	if e.Undo(ctx) {
		t.Error("Undo at the start should be a no-op")
	}
	addAt(t, e, 3, timeline.Pose{"m": 3})
	if s := e.State(); s.HistoryLen != 2 || s.HistoryIndex != 1 {
		t.Errorf("expected branch to be discarded, got len %d index %d", s.HistoryLen, s.HistoryIndex)
	}
}

func TestRemoveSelected(t *testing.T) {
	e := New()
	ctx := context.Background()
	addAt(t, e, 4, timeline.Pose{"m": 1})

	if err := e.Seek(6); err != nil {
		t.Fatal(err)
	}
	if n := e.RemoveSelected(ctx); n != 0 {
		t.Errorf("removed %d from an empty frame", n)
	}
	if e.State().HistoryLen != 2 {
		t.Error("removing nothing must not record history")
	}

	e.Seek(4)
	if n := e.RemoveSelected(ctx); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	s := e.State()
	if len(s.Keyframes) != 0 || len(s.Selected) != 0 || s.HistoryLen != 3 {
		t.Errorf("after remove: %+v", s)
	}
}

func TestRangeCopyPaste(t *testing.T) {
	ctx := context.Background()
	e := New()
	for _, f := range []int{10, 12, 18, 20, 25} {
		addAt(t, e, f, timeline.Pose{"m": f})
	}

	e.Seek(10)
	e.BeginRange()
	e.Seek(20)
	e.EndRange()
	if got := e.State().Range; len(got) != 2 || got[0] != 12 || got[1] != 18 {
		t.Fatalf("range = %v, want [12 18]", got)
	}

	// the current frame 20 is part of the selection too
	n, err := e.Copy(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Copy = %d %v", n, err)
	}

	e.Seek(50)
	if n, err := e.Paste(ctx); err != nil || n != 3 {
		t.Fatalf("Paste = %d %v", n, err)
	}
	got := e.State().Keyframes
	want := map[int]int{50: 12, 56: 18, 58: 20}
	for _, kf := range got {
		if v, ok := want[kf.FrameIndex]; ok && kf.Values["m"] != v {
			t.Errorf("pasted frame %d = %d, want %d", kf.FrameIndex, kf.Values["m"], v)
		}
	}
	if len(got) != 8 {
		t.Errorf("expected 8 keyframes after paste, got %d", len(got))
	}
}

func TestPasteOutOfRangeIsAtomic(t *testing.T) {
	ctx := context.Background()
	clip := &clipboard.MemoryTransport{}
	clip.Write(ctx, `[{"frameIndex":0,"values":{"m":1}},{"frameIndex":5,"values":{"m":2}}]`)
	e := New(WithConfig(timeline.Config{TotalFrames: 10, FPS: 10}), WithClipboard(clip))

	e.Seek(7)
	if _, err := e.Paste(ctx); !errors.Is(err, timeline.ErrOutOfRangeFrame) {
		t.Fatalf("Expected ErrOutOfRangeFrame, got %v", err)
	}
	if s := e.State(); len(s.Keyframes) != 0 || s.HistoryLen != 1 {
		t.Errorf("failed paste changed state: %+v", s)
	}
}

func TestPasteMalformedClipboard(t *testing.T) {
	ctx := context.Background()
	clip := &clipboard.MemoryTransport{}
	clip.Write(ctx, `not json`)
	e := New(WithClipboard(clip))

	if _, err := e.Paste(ctx); !errors.Is(err, clipboard.ErrClipboardFormat) {
		t.Errorf("Expected ErrClipboardFormat, got %v", err)
	}
}

func TestCopyEmptySelectionKeepsClipboard(t *testing.T) {
	ctx := context.Background()
	clip := &clipboard.MemoryTransport{}
	clip.Write(ctx, "[]")
	e := New(WithClipboard(clip))

	if _, err := e.Copy(ctx); !errors.Is(err, timeline.ErrEmptySelection) {
		t.Errorf("Expected ErrEmptySelection, got %v", err)
	}
	if _, err := e.Cut(ctx); !errors.Is(err, timeline.ErrEmptySelection) {
		t.Errorf("Expected ErrEmptySelection from Cut, got %v", err)
	}
	if data, _ := clip.Read(ctx); data != "[]" {
		t.Errorf("clipboard overwritten: %q", data)
	}
}

func TestCut(t *testing.T) {
	ctx := context.Background()
	e := New()
	addAt(t, e, 3, timeline.Pose{"m": 9})

	if n, err := e.Cut(ctx); err != nil || n != 1 {
		t.Fatalf("Cut = %d %v", n, err)
	}
	if len(e.State().Keyframes) != 0 {
		t.Error("Cut did not remove the keyframe")
	}
	e.Seek(40)
	if _, err := e.Paste(ctx); err != nil {
		t.Fatal(err)
	}
	if kf := e.State().Keyframes; len(kf) != 1 || kf[0].FrameIndex != 40 {
		t.Errorf("unexpected keyframes after paste %+v", kf)
	}
}

func TestApplyConfigKeepsKeyframes(t *testing.T) {
	ctx := context.Background()
	e := New()
	addAt(t, e, 80, timeline.Pose{"m": 1})

	if err := e.ApplyConfig(ctx, timeline.Config{TotalFrames: 0, FPS: 10}); !errors.Is(err, timeline.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := e.ApplyConfig(ctx, timeline.Config{TotalFrames: 50, FPS: 25}); err != nil {
		t.Fatal(err)
	}
	s := e.State()
	if s.FrameIndex != 49 || len(s.Keyframes) != 1 || s.Config.FPS != 25 {
		t.Errorf("unexpected state %+v", s)
	}

	e.Undo(ctx)
	if e.State().Config.TotalFrames != 100 {
		t.Error("undo did not restore config")
	}
}

func TestImportExport(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{config: map[string]any{"servos": 16}}
	e := New(WithDevice(dev))

	doc := &document.Document{
		Keyframes: []timeline.Keyframe{{FrameIndex: 2, Values: timeline.Pose{"m": 7}}},
		Config:    document.Config{TotalFrames: 30, FPS: 15, CurrentFrameIndex: 2},
	}
	if err := e.Import(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if s := e.State(); s.FrameIndex != 2 || s.Pose["m"] != 7 || s.HistoryLen != 2 {
		t.Errorf("unexpected state after import %+v", s)
	}

	bad := &document.Document{Config: document.Config{TotalFrames: -1, FPS: 1}}
	if err := e.Import(ctx, bad); !errors.Is(err, document.ErrDocumentFormat) {
		t.Errorf("Expected ErrDocumentFormat, got %v", err)
	}
	if e.State().Config.TotalFrames != 30 {
		t.Error("failed import changed state")
	}

	out := e.Export(ctx, true)
	if out.Device["servos"] != 16 || out.Config.TotalFrames != 30 || len(out.Keyframes) != 1 {
		t.Errorf("unexpected export %+v", out)
	}

	dev.config = nil
	if out := e.Export(ctx, true); out.Device != nil {
		t.Error("device block should be omitted when the device fails")
	}
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	e := New(WithStore(store))
	addAt(t, e, 1, timeline.Pose{"m": 1})
	addAt(t, e, 2, timeline.Pose{"m": 2})
	e.Undo(ctx)

	if store.saved == nil || store.saved.HistoryIndex != 1 || len(store.saved.History) != 3 {
		t.Fatalf("unexpected saved history %+v", store.saved)
	}

	loaded := New(WithStore(store))
	if err := loaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	s := loaded.State()
	if len(s.Keyframes) != 1 || s.HistoryIndex != 1 || s.HistoryLen != 3 {
		t.Errorf("unexpected loaded state %+v", s)
	}
	if !loaded.Redo(ctx) || len(loaded.State().Keyframes) != 2 {
		t.Error("redo after load failed")
	}
}

func TestLoadCorruptResets(t *testing.T) {
	ctx := context.Background()
	store := &memStore{saved: &document.History{HistoryIndex: 4}}
	e := New(WithStore(store))

	if err := e.Load(ctx); !errors.Is(err, history.ErrInvalidHistoryIndex) {
		t.Errorf("Expected ErrInvalidHistoryIndex, got %v", err)
	}
	if s := e.State(); s.HistoryLen != 1 || len(s.Keyframes) != 0 {
		t.Errorf("expected a fresh history, got %+v", s)
	}
	if store.saved.HistoryIndex != 0 || len(store.saved.History) != 1 {
		t.Error("reset history was not saved")
	}

	store.loadErr = document.ErrDocumentFormat
	if err := e.Load(ctx); !errors.Is(err, document.ErrDocumentFormat) {
		t.Errorf("Expected ErrDocumentFormat, got %v", err)
	}
}

func TestLoadReadErrorKeepsStoredHistory(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	e := New(WithStore(store))
	addAt(t, e, 4, timeline.Pose{"m": 4})
	saved := store.saved
	saves := store.saves

	readErr := errors.New("database is locked")
	store.loadErr = readErr
	loaded := New(WithStore(store))
	if err := loaded.Load(ctx); !errors.Is(err, readErr) {
		t.Fatalf("Expected the read error, got %v", err)
	}
	if store.saves != saves || store.saved != saved {
		t.Errorf("stored history was overwritten: %d saves, %+v", store.saves-saves, store.saved)
	}
	if s := loaded.State(); s.HistoryLen != 1 || len(s.Keyframes) != 0 {
		t.Errorf("expected a fresh editor, got %+v", s)
	}

	store.loadErr = nil
	if err := loaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if len(loaded.State().Keyframes) != 1 {
		t.Error("history lost after the read error cleared")
	}
}

func TestRendererNotified(t *testing.T) {
	r := &countingRenderer{}
	e := New(WithRenderer(r))
	before := r.calls

	e.Seek(12)
	if r.calls == before || r.last.FrameIndex != 12 {
		t.Errorf("renderer not notified: %+v", r.last)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPlaybackRequiresAck(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{startErr: errors.New("connection refused")}
	e := New(WithDevice(dev), WithPollInterval(time.Millisecond))

	if err := e.StartPlayback(ctx); !errors.Is(err, ErrRemoteAck) {
		t.Fatalf("Expected ErrRemoteAck, got %v", err)
	}
	if e.Playing() {
		t.Error("editor playing without ack")
	}

	if err := New().StartPlayback(ctx); !errors.Is(err, ErrRemoteAck) {
		t.Errorf("Expected ErrRemoteAck without a device, got %v", err)
	}
}

func TestPlaybackFollowsDevice(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{index: 17}
	e := New(WithDevice(dev), WithPollInterval(time.Millisecond))
	addAt(t, e, 0, timeline.Pose{"m": 0})

	if err := e.TogglePlayback(ctx); err != nil {
		t.Fatal(err)
	}
	if !e.Playing() || dev.started == nil || len(dev.started.Keyframes) != 1 {
		t.Fatalf("playback not started: %+v", dev.started)
	}
	waitFor(t, func() bool { return e.State().FrameIndex == 17 })

	// a failed stop keeps playing
	dev.mu.Lock()
	dev.stopErr = errors.New("timeout")
	dev.mu.Unlock()
	if err := e.StopPlayback(ctx); !errors.Is(err, ErrRemoteAck) {
		t.Fatalf("Expected ErrRemoteAck, got %v", err)
	}
	if !e.Playing() {
		t.Fatal("failed stop left the playing state")
	}

	dev.mu.Lock()
	dev.stopErr = nil
	dev.mu.Unlock()
	if err := e.TogglePlayback(ctx); err != nil {
		t.Fatal(err)
	}
	if e.Playing() {
		t.Fatal("still playing after stop")
	}

	polls := dev.pollCount()
	dev.setIndex(33)
	time.Sleep(20 * time.Millisecond)
	if e.State().FrameIndex != 17 {
		t.Error("playhead moved after stop")
	}
	if dev.pollCount() != polls {
		t.Error("poller still running after stop")
	}
	if e.State().HistoryLen != 2 {
		t.Error("playback must not record history")
	}
}
