package device

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ivlev/marionette/internal/document"
	"github.com/ivlev/marionette/internal/timeline"
)

// ErrNotPlaying is returned when the playhead is queried while stopped
var ErrNotPlaying = errors.New("not playing")

// Player plays a document in wall-clock time. The playhead wraps around
// the axis until stopped.
type Player struct {
	mu      sync.Mutex
	now     func() time.Time
	enabled bool

	session   string
	keyframes *timeline.KeyframeSet
	cfg       timeline.Config
	offset    float64 // seconds into the cycle at start
	started   time.Time
}

type PlayerOption func(*Player)

// WithClock replaces time.Now
func WithClock(now func() time.Time) PlayerOption {
	return func(p *Player) {
		p.now = now
	}
}

func NewPlayer(opts ...PlayerOption) *Player {
	p := &Player{now: time.Now, enabled: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start replaces whatever is playing and returns the new session id
func (p *Player) Start(doc *document.Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}
	snap := doc.Snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.session = uuid.NewString()
	p.keyframes = snap.Set()
	p.cfg = snap.Config
	p.offset = float64(p.cfg.Clamp(snap.CurrentFrameIndex)) / float64(p.cfg.FPS)
	p.started = p.now()
	return p.session, nil
}

// Stop halts playback. Stopping a stopped player is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = ""
	p.keyframes = nil
}

// Session returns the id of the running session, empty when stopped
func (p *Player) Session() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// CurrentIndex returns the frame the player is at
func (p *Player) CurrentIndex() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentIndexLocked()
}

func (p *Player) currentIndexLocked() (int, error) {
	if p.keyframes == nil {
		return 0, ErrNotPlaying
	}
	elapsed := p.offset + p.now().Sub(p.started).Seconds()
	t := math.Mod(elapsed, p.cfg.Duration())
	// a clock that runs behind started gives a negative remainder
	return max(min(int(t*float64(p.cfg.FPS)), p.cfg.TotalFrames-1), 0), nil
}

// Pose returns the current frame and its interpolated pose
func (p *Player) Pose() (int, timeline.Pose, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, err := p.currentIndexLocked()
	if err != nil {
		return 0, nil, err
	}
	return idx, timeline.Interpolate(p.keyframes, p.cfg, idx), nil
}

func (p *Player) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *Player) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}
