package device

import (
	"context"
	"sync"
	"time"
)

// NullSettings configures the null backend.
type NullSettings struct {
	// StreamDurationSec is the simulated length of every stream.
	StreamDurationSec int `mapstructure:"stream_duration_sec" default:"30" validate:"gte=1"`
}

// Null simulates playback against the wall clock without touching any audio
// hardware. It is used for headless runs and in tests.
type Null struct {
	mu sync.Mutex

	streamDuration time.Duration

	loaded        bool
	duration      time.Duration
	startedAt     time.Time
	pausedAt      time.Time
	pausedElapsed time.Duration
	paused        bool
	volumePercent int

	onDone      func()
	timerCancel func()
}

func newNull(s NullSettings) *Null {
	return &Null{
		streamDuration: time.Duration(s.StreamDurationSec) * time.Second,
		volumePercent:  100,
	}
}

// Play starts a simulated stream of the configured duration.
func (n *Null) Play(_ context.Context, _ string, onDone func()) (time.Duration, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stopLocked()

	n.loaded = true
	n.duration = n.streamDuration
	n.startedAt = time.Now()
	n.pausedElapsed = 0
	n.paused = false
	n.onDone = onDone
	n.timerCancel = n.startEndTimer(n.duration, onDone)

	return n.duration, nil
}

// startEndTimer fires callback once the remaining time elapses.
// Returns a cancel function.
func (n *Null) startEndTimer(remaining time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.NewTimer(remaining)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			callback()
		}
	}()
	return cancel
}

// Pause freezes the simulated playhead.
func (n *Null) Pause() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded || n.paused {
		return
	}
	n.paused = true
	n.pausedAt = time.Now()
	if n.timerCancel != nil {
		n.timerCancel()
		n.timerCancel = nil
	}
}

// Resume unfreezes the simulated playhead.
func (n *Null) Resume() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded || !n.paused {
		return
	}
	n.pausedElapsed += time.Since(n.pausedAt)
	n.paused = false

	remaining := n.duration - n.positionLocked()
	if remaining < 0 {
		remaining = 0
	}
	n.timerCancel = n.startEndTimer(remaining, n.onDone)
}

// SeekTo moves the simulated playhead.
func (n *Null) SeekTo(pos time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded {
		return ErrNotLoaded
	}
	if pos < 0 {
		pos = 0
	}
	if pos > n.duration {
		pos = n.duration
	}
	n.startedAt = time.Now().Add(-pos)
	n.pausedElapsed = 0
	if n.paused {
		n.pausedAt = time.Now()
		return nil
	}
	// Reschedule the end timer against the new playhead.
	if n.timerCancel != nil {
		n.timerCancel()
	}
	n.timerCancel = n.startEndTimer(n.duration-pos, n.onDone)
	return nil
}

// Position returns the simulated playhead position.
func (n *Null) Position() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.positionLocked()
}

func (n *Null) positionLocked() time.Duration {
	if !n.loaded {
		return 0
	}
	elapsed := time.Since(n.startedAt) - n.pausedElapsed
	if n.paused {
		elapsed -= time.Since(n.pausedAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > n.duration {
		elapsed = n.duration
	}
	return elapsed
}

// SetVolume records the volume; the null backend has no output to scale.
func (n *Null) SetVolume(percent int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.volumePercent = clampPercent(percent)
}

// Stop discards the simulated stream.
func (n *Null) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
}

func (n *Null) stopLocked() {
	if n.timerCancel != nil {
		n.timerCancel()
		n.timerCancel = nil
	}
	n.loaded = false
	n.paused = false
	n.duration = 0
	n.pausedElapsed = 0
}

// Close stops the simulated stream.
func (n *Null) Close() error {
	n.Stop()
	return nil
}
