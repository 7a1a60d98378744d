package device

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// SpeakerSettings configures the beep speaker backend.
type SpeakerSettings struct {
	SampleRate      int `mapstructure:"sample_rate" default:"44100" validate:"gte=8000"`
	BufferMs        int `mapstructure:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" default:"30" validate:"gte=1"`
}

// Speaker plays MP3 streams through the system audio output using beep.
// The speaker is initialized once at the configured sample rate; streams
// with other rates are resampled.
type Speaker struct {
	mu sync.Mutex

	sampleRate  beep.SampleRate
	initialized bool
	httpClient  *http.Client

	streamer beep.StreamSeekCloser
	format   beep.Format
	volume   *effects.Volume
	ctrl     *beep.Ctrl

	volumePercent int
}

func newSpeaker(s SpeakerSettings) (*Speaker, error) {
	sp := &Speaker{
		sampleRate:    beep.SampleRate(s.SampleRate),
		httpClient:    &http.Client{Timeout: time.Duration(s.FetchTimeoutSec) * time.Second},
		volumePercent: 100,
	}

	if err := speaker.Init(sp.sampleRate, sp.sampleRate.N(time.Duration(s.BufferMs)*time.Millisecond)); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}
	sp.initialized = true
	return sp, nil
}

// Play fetches the stream, decodes it and starts output. onDone fires once
// when the decoded stream drains naturally.
func (s *Speaker) Play(ctx context.Context, streamURL string, onDone func()) (time.Duration, error) {
	data, err := s.fetch(ctx, streamURL)
	if err != nil {
		return 0, err
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to decode stream %s", streamURL)
	}

	return s.commit(ctx, streamURL, streamer, format, onDone)
}

// commit installs a decoded stream as the device output. The context is
// re-checked under the lock: a load cancelled while it was fetching or
// decoding must never reach the speaker, or it would silently replace the
// stream of whatever item the caller has since switched to.
func (s *Speaker) commit(ctx context.Context, streamURL string, streamer beep.StreamSeekCloser, format beep.Format, onDone func()) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		streamer.Close()
		return 0, errors.Wrapf(err, "load of %s superseded", streamURL)
	}

	s.stopLocked()

	s.streamer = streamer
	s.format = format

	var resampled beep.Streamer = streamer
	if format.SampleRate != s.sampleRate {
		resampled = beep.Resample(4, format.SampleRate, s.sampleRate, streamer)
	}

	s.volume = &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeGain(s.volumePercent),
		Silent:   s.volumePercent == 0,
	}
	s.ctrl = &beep.Ctrl{Streamer: s.volume}

	duration := format.SampleRate.D(streamer.Len())

	speaker.Play(beep.Seq(s.ctrl, beep.Callback(func() {
		// Run off the speaker goroutine so onDone may start the next item.
		go onDone()
	})))

	zlog.Debug().Msgf("device: playing stream url=%s duration=%v sample_rate=%d",
		streamURL, duration, format.SampleRate)

	return duration, nil
}

func (s *Speaker) fetch(ctx context.Context, streamURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stream request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch stream %s", streamURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("stream %s returned status %d", streamURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read stream %s", streamURL)
	}
	return data, nil
}

// Pause pauses output, keeping the playhead position.
func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

// Resume continues output from the paused position.
func (s *Speaker) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
}

// SeekTo moves the playhead to pos.
func (s *Speaker) SeekTo(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil {
		return ErrNotLoaded
	}

	speaker.Lock()
	defer speaker.Unlock()
	return errors.Wrap(s.streamer.Seek(s.format.SampleRate.N(pos)), "seek failed")
}

// Position returns the playhead position within the current stream.
func (s *Speaker) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := s.streamer.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos)
}

// SetVolume maps percent (0-100) onto the logarithmic gain of the output.
// 0 mutes entirely.
func (s *Speaker) SetVolume(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volumePercent = clampPercent(percent)
	if s.volume == nil {
		return
	}

	speaker.Lock()
	s.volume.Silent = s.volumePercent == 0
	s.volume.Volume = volumeGain(s.volumePercent)
	speaker.Unlock()
}

// Stop discards the current stream without firing its completion callback.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Speaker) stopLocked() {
	if s.ctrl != nil {
		speaker.Clear()
	}
	if s.streamer != nil {
		s.streamer.Close()
		s.streamer = nil
	}
	s.ctrl = nil
	s.volume = nil
}

// Close releases the audio output.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	if s.initialized {
		speaker.Close()
		s.initialized = false
	}
	return nil
}

// volumeGain converts a 0-100 percentage to a base-2 gain exponent.
// 100 is unity gain; each halving of the percentage drops one octave.
func volumeGain(percent int) float64 {
	if percent <= 0 {
		return 0
	}
	return math.Log2(float64(percent) / 100)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// nopCloser adapts a bytes.Reader to io.ReadCloser for the MP3 decoder.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
