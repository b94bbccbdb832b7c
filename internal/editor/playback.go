package editor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// poller follows the device's playhead while playing
type poller struct {
	cancel context.CancelFunc
	group  *errgroup.Group
}

func (p *poller) stop() {
	p.cancel()
	_ = p.group.Wait()
}

// Playing reports whether the device acknowledged playback
func (e *Editor) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playback != nil
}

// StartPlayback sends the live document to the device. The editor enters
// the playing state only after the device acknowledged it.
func (e *Editor) StartPlayback(ctx context.Context) error {
	if e.device == nil {
		return fmt.Errorf("%w: no device configured", ErrRemoteAck)
	}
	if e.Playing() {
		return nil
	}

	doc := e.Export(ctx, false)
	if err := e.device.StartPlayback(ctx, doc); err != nil {
		return fmt.Errorf("%w: start playback: %w", ErrRemoteAck, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playback != nil {
		return nil
	}
	e.playback = e.startPollerLocked()
	e.refreshLocked()
	e.log.InfoContext(ctx, "playback started", "frames", e.cfg.TotalFrames, "fps", e.cfg.FPS)
	return nil
}

// StopPlayback asks the device to stop. On failure the editor keeps playing.
// Once it returns no further playback update reaches the editor.
func (e *Editor) StopPlayback(ctx context.Context) error {
	e.mu.Lock()
	p := e.playback
	e.mu.Unlock()
	if p == nil {
		return nil
	}

	if err := e.device.StopPlayback(ctx); err != nil {
		return fmt.Errorf("%w: stop playback: %w", ErrRemoteAck, err)
	}

	e.mu.Lock()
	if e.playback == p {
		e.playback = nil
		e.refreshLocked()
	}
	e.mu.Unlock()

	p.stop()
	e.log.InfoContext(ctx, "playback stopped")
	return nil
}

// TogglePlayback starts or stops playback
func (e *Editor) TogglePlayback(ctx context.Context) error {
	if e.Playing() {
		return e.StopPlayback(ctx)
	}
	return e.StartPlayback(ctx)
}

func (e *Editor) startPollerLocked() *poller {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	p := &poller{cancel: cancel, group: g}

	interval := e.pollInterval
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			idx, err := e.device.PollCurrentIndex(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				e.log.Warn("poll current index", "err", err)
				continue
			}
			e.followPlayback(p, idx)
		}
	})
	return p
}

// followPlayback moves the playhead to the device's frame unless p was stopped
func (e *Editor) followPlayback(p *poller, frame int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playback != p {
		return
	}
	if !e.cfg.Contains(frame) {
		e.log.Warn("device frame outside the axis", "frame", frame, "total_frames", e.cfg.TotalFrames)
		return
	}
	e.navigateLocked(frame)
}
