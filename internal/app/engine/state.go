package engine

import (
	"time"

	"github.com/tonearm/tonearm/internal/domain/item"
	"github.com/tonearm/tonearm/internal/domain/queue"
)

// Status represents the playback status.
type Status int

const (
	StatusStopped Status = iota // No current item
	StatusPlaying               // Item is playing
	StatusPaused                // Item is paused
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// State is the read model broadcast to widgets. It is a value snapshot;
// holders never observe later engine mutations through it.
type State struct {
	ListID   string
	Items    []item.Item
	Cursor   int
	Current  *item.Item // nil when the cursor is cleared
	Status   Status
	Loading  bool // Between "commanded to play" and the device confirming start or failure
	Volume   int  // 0-100
	Elapsed  time.Duration
	Duration time.Duration
	Shuffled bool
	Repeat   queue.RepeatMode
}

// IsPlaying reports whether playback is running.
func (s State) IsPlaying() bool {
	return s.Status == StatusPlaying
}

// StateChanged is published on bridge.TopicState after any engine mutation.
type StateChanged struct {
	State State
}

// ItemEnded is published on bridge.TopicItemEnded when an item completes
// naturally (not on skip or stop).
type ItemEnded struct {
	Item item.Item
}

// PlaybackError is published on bridge.TopicError when the device fails to
// start or continue playback. The engine has already transitioned to paused;
// it never retries.
type PlaybackError struct {
	Item item.Item
	Err  error
}
