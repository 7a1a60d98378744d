// Package device provides audio output backends behind a single Device
// interface. Exactly one Device exists per process and it is owned
// exclusively by the playback engine; no other component calls it.
package device

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotLoaded is returned by seek operations when nothing is loaded.
var ErrNotLoaded = errors.New("no stream loaded")

// Device is one audio output handle.
//
// Play fetches and decodes the stream at streamURL, starts output and
// returns the decoded duration. It blocks until playback has started or
// failed, so callers run it off their own lock and reconcile the result
// against the item that is current by then. onDone fires exactly once when
// the stream completes naturally; it does not fire on Stop.
type Device interface {
	Play(ctx context.Context, streamURL string, onDone func()) (time.Duration, error)
	Pause()
	Resume()
	SeekTo(pos time.Duration) error
	Position() time.Duration
	SetVolume(percent int)
	Stop()
	Close() error
}
