// Package editor is the timeline controller: it owns the keyframes, the
// selection and the undo log, and talks to the injected collaborators.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/marionette/internal/clipboard"
	"github.com/ivlev/marionette/internal/document"
	"github.com/ivlev/marionette/internal/history"
	"github.com/ivlev/marionette/internal/selection"
	"github.com/ivlev/marionette/internal/timeline"
)

// ErrRemoteAck is returned when the device did not acknowledge a command
var ErrRemoteAck = errors.New("device did not acknowledge")

// DefaultPollInterval is how often the playhead follows the device while playing
const DefaultPollInterval = 250 * time.Millisecond

// Store persists the undo log
type Store interface {
	Load(ctx context.Context) (*document.History, error)
	Save(ctx context.Context, h document.History) error
}

// Device plays animations on the marionette
type Device interface {
	StartPlayback(ctx context.Context, doc *document.Document) error
	StopPlayback(ctx context.Context) error
	PollCurrentIndex(ctx context.Context) (int, error)
	DeviceConfig(ctx context.Context) (map[string]any, error)
}

// Renderer consumes editor state. It is called with the editor locked and
// must not call back into the editor.
type Renderer interface {
	Render(State)
}

// State is everything a renderer needs to draw the editor
type State struct {
	FrameIndex   int
	Pose         timeline.Pose
	Keyframes    []timeline.Keyframe
	Config       timeline.Config
	Selected     []int
	Range        []int
	Ranging      bool
	Playing      bool
	HistoryIndex int
	HistoryLen   int
}

// Editor is the timeline controller
type Editor struct {
	mu sync.Mutex

	cfg       timeline.Config
	keyframes *timeline.KeyframeSet
	current   int
	pose      timeline.Pose
	sel       selection.Model
	hist      *history.Stack
	playback  *poller

	store        Store
	device       Device
	clip         clipboard.Transport
	renderer     Renderer
	log          *slog.Logger
	pollInterval time.Duration
}

type Option func(*Editor)

// WithConfig sets the initial axis
func WithConfig(cfg timeline.Config) Option {
	return func(e *Editor) {
		e.cfg = cfg
	}
}

// WithStore injects the persistence collaborator
func WithStore(s Store) Option {
	return func(e *Editor) {
		e.store = s
	}
}

// WithDevice injects the playback collaborator
func WithDevice(d Device) Option {
	return func(e *Editor) {
		e.device = d
	}
}

// WithClipboard injects the clipboard transport
func WithClipboard(t clipboard.Transport) Option {
	return func(e *Editor) {
		e.clip = t
	}
}

// WithRenderer injects the pose rendering collaborator
func WithRenderer(r Renderer) Option {
	return func(e *Editor) {
		e.renderer = r
	}
}

// WithLogger sets the logger used for best-effort failures
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		e.log = l
	}
}

// WithPollInterval sets the playback polling period
func WithPollInterval(d time.Duration) Option {
	return func(e *Editor) {
		e.pollInterval = d
	}
}

// New creates an editor with an empty timeline and a single-entry history
func New(opts ...Option) *Editor {
	e := &Editor{
		cfg:          timeline.DefaultConfig(),
		keyframes:    timeline.NewKeyframeSet(),
		log:          slog.Default(),
		pollInterval: DefaultPollInterval,
		clip:         &clipboard.MemoryTransport{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.Validate() != nil {
		e.cfg = timeline.DefaultConfig()
	}
	if e.pollInterval <= 0 {
		e.pollInterval = DefaultPollInterval
	}
	e.hist = history.NewStack(e.snapshotLocked())
	e.navigateLocked(0)
	return e
}

// State returns the current renderable state
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Editor) stateLocked() State {
	return State{
		FrameIndex:   e.current,
		Pose:         e.pose.Clone(),
		Keyframes:    e.keyframes.Keyframes(),
		Config:       e.cfg,
		Selected:     e.sel.Frames(),
		Range:        e.sel.Range(),
		Ranging:      e.sel.Ranging(),
		Playing:      e.playback != nil,
		HistoryIndex: e.hist.Index(),
		HistoryLen:   e.hist.Len(),
	}
}

func (e *Editor) snapshotLocked() history.Snapshot {
	return history.Snapshot{
		Keyframes:         e.keyframes.Keyframes(),
		Config:            e.cfg,
		CurrentFrameIndex: e.current,
	}
}

// navigateLocked moves the playhead and re-derives selection and pose
func (e *Editor) navigateLocked(frame int) {
	e.current = frame
	e.sel.Update(frame, e.keyframes.Indices())
	e.refreshLocked()
}

// refreshLocked re-derives the pose for the current frame and notifies the renderer
func (e *Editor) refreshLocked() {
	e.pose = timeline.Interpolate(e.keyframes, e.cfg, e.current)
	if e.renderer != nil {
		e.renderer.Render(e.stateLocked())
	}
}

// commitLocked records the live state in history and persists it
func (e *Editor) commitLocked(ctx context.Context) {
	e.hist.Push(e.snapshotLocked())
	e.refreshLocked()
	e.persistLocked(ctx)
}

// persistLocked saves the history. Failures are logged, never returned.
func (e *Editor) persistLocked(ctx context.Context) {
	if e.store == nil {
		return
	}
	h := document.NewHistory(e.hist.Entries(), e.hist.Index())
	if err := e.store.Save(ctx, h); err != nil {
		e.log.WarnContext(ctx, "persist history", "err", err, "history_index", h.HistoryIndex)
	}
}

// restoreLocked replaces the live state with a snapshot
func (e *Editor) restoreLocked(s history.Snapshot) {
	e.keyframes = s.Set()
	e.cfg = s.Config
	e.sel.Clear()
	e.navigateLocked(e.cfg.Clamp(s.CurrentFrameIndex))
}
