package device

import (
	"context"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		deviceType string
		settings   map[string]any
		wantErr    bool
	}{
		{
			name:       "null device with defaults",
			deviceType: "null",
			settings:   nil,
		},
		{
			name:       "null device with settings",
			deviceType: "null",
			settings:   map[string]any{"stream_duration_sec": 5},
		},
		{
			name:       "invalid null settings",
			deviceType: "null",
			settings:   map[string]any{"stream_duration_sec": 0},
			wantErr:    true,
		},
		{
			name:       "unsupported type",
			deviceType: "gramophone",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.deviceType, tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, d)
			assert.NoError(t, d.Close())
		})
	}
}

func TestNull_PlayReportsDuration(t *testing.T) {
	n := newNull(NullSettings{StreamDurationSec: 7})
	defer n.Close()

	dur, err := n.Play(context.Background(), "stream://x", func() {})
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, dur)
}

func TestNull_PositionAdvancesAndPauseFreezes(t *testing.T) {
	n := newNull(NullSettings{StreamDurationSec: 60})
	defer n.Close()

	_, err := n.Play(context.Background(), "stream://x", func() {})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	assert.Greater(t, n.Position(), time.Duration(0))

	n.Pause()
	frozen := n.Position()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, n.Position())

	n.Resume()
	time.Sleep(30 * time.Millisecond)
	assert.Greater(t, n.Position(), frozen)
}

func TestNull_SeekTo(t *testing.T) {
	n := newNull(NullSettings{StreamDurationSec: 60})
	defer n.Close()

	_, err := n.Play(context.Background(), "stream://x", func() {})
	require.NoError(t, err)

	require.NoError(t, n.SeekTo(30*time.Second))
	pos := n.Position()
	assert.GreaterOrEqual(t, pos, 30*time.Second)
	assert.Less(t, pos, 31*time.Second)

	// Seeks are clamped to the stream bounds.
	require.NoError(t, n.SeekTo(5*time.Minute))
	assert.Equal(t, 60*time.Second, n.Position())
}

func TestNull_SeekWithoutStream(t *testing.T) {
	n := newNull(NullSettings{StreamDurationSec: 60})
	defer n.Close()

	assert.ErrorIs(t, n.SeekTo(time.Second), ErrNotLoaded)
}

func TestNull_OnDoneFiresAtStreamEnd(t *testing.T) {
	n := newNull(NullSettings{StreamDurationSec: 1})
	defer n.Close()

	done := make(chan struct{})
	// Shrink the simulated stream so the test does not wait a full second.
	n.streamDuration = 20 * time.Millisecond

	_, err := n.Play(context.Background(), "stream://x", func() { close(done) })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onDone never fired")
	}
}

func TestNull_OnDoneSurvivesPauseResume(t *testing.T) {
	n := newNull(NullSettings{StreamDurationSec: 1})
	defer n.Close()
	n.streamDuration = 40 * time.Millisecond

	done := make(chan struct{})
	_, err := n.Play(context.Background(), "stream://x", func() { close(done) })
	require.NoError(t, err)

	n.Pause()
	// Stay paused past the original end of the stream.
	time.Sleep(60 * time.Millisecond)
	n.Resume()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onDone never fired after resume")
	}
}

func TestNull_StopCancelsOnDone(t *testing.T) {
	n := newNull(NullSettings{StreamDurationSec: 1})
	defer n.Close()
	n.streamDuration = 20 * time.Millisecond

	fired := make(chan struct{}, 1)
	_, err := n.Play(context.Background(), "stream://x", func() { fired <- struct{}{} })
	require.NoError(t, err)

	n.Stop()

	select {
	case <-fired:
		t.Fatal("onDone fired after Stop")
	case <-time.After(80 * time.Millisecond):
	}
}

// fakeSeekStream is a silent beep.StreamSeekCloser for exercising the
// speaker's commit path without audio hardware.
type fakeSeekStream struct {
	length int
	pos    int
	closed bool
}

func (f *fakeSeekStream) Stream(samples [][2]float64) (int, bool) { return 0, false }
func (f *fakeSeekStream) Err() error                              { return nil }
func (f *fakeSeekStream) Len() int                                { return f.length }
func (f *fakeSeekStream) Position() int                           { return f.pos }
func (f *fakeSeekStream) Seek(p int) error                        { f.pos = p; return nil }
func (f *fakeSeekStream) Close() error                            { f.closed = true; return nil }

func TestSpeaker_CommitDropsSupersededLoad(t *testing.T) {
	s := &Speaker{sampleRate: 44100, volumePercent: 100}
	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}

	// A live load commits and reports the decoded duration.
	current := &fakeSeekStream{length: 44100}
	dur, err := s.commit(context.Background(), "stream://current", current, format, func() {})
	require.NoError(t, err)
	assert.Equal(t, time.Second, dur)
	assert.Same(t, current, s.streamer)

	// A load whose context was cancelled mid-flight resolves afterwards:
	// it must be discarded, not replace the committed stream.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stale := &fakeSeekStream{length: 44100}
	_, err = s.commit(ctx, "stream://stale", stale, format, func() {})
	require.Error(t, err)
	assert.True(t, stale.closed, "superseded streamer is released")
	assert.False(t, current.closed)
	assert.Same(t, current, s.streamer, "committed stream survives the stale resolution")
}

func TestVolumeGain(t *testing.T) {
	assert.Equal(t, 0.0, volumeGain(100))
	assert.Equal(t, -1.0, volumeGain(50))
	assert.Equal(t, 0.0, volumeGain(0)) // silenced via the Silent flag instead
}
