// Package engine provides the playback engine: the sole owner of the audio
// device, the play queue and the broadcast playback state.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/internal/app/bridge"
	"github.com/tonearm/tonearm/internal/app/device"
	"github.com/tonearm/tonearm/internal/domain/item"
	"github.com/tonearm/tonearm/internal/domain/queue"
	"github.com/tonearm/tonearm/internal/infra/playcount"
	"github.com/tonearm/tonearm/internal/infra/resume"
)

// Config holds engine configuration.
type Config struct {
	PlayCountThreshold time.Duration // Continuous playback before a listen counts
	PersistDebounce    time.Duration // Batch window for high-frequency snapshot writes
	ProgressInterval   time.Duration // Elapsed-time refresh rate while playing
	DefaultVolume      int           // Initial volume percent
}

func (c Config) withDefaults() Config {
	if c.PlayCountThreshold <= 0 {
		c.PlayCountThreshold = 30 * time.Second
	}
	if c.PersistDebounce <= 0 {
		c.PersistDebounce = time.Second
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 500 * time.Millisecond
	}
	// Zero is a real preference (start muted); only out-of-range values
	// fall back.
	if c.DefaultVolume < 0 || c.DefaultVolume > 100 {
		c.DefaultVolume = 80
	}
	return c
}

// Engine drives one audio device from the play queue and broadcasts every
// state change over the bridge. All mutation happens inside its command
// handlers; everything else only ever sees State snapshots.
//
// Device calls that can block (fetching, decoding) run on their own
// goroutines. Each load bumps a generation counter, and every asynchronous
// resolution re-checks that counter under the lock: results for an item
// that is no longer current are silently dropped.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	dev    device.Device
	bus    *bridge.Bus
	counts playcount.Reporter
	store  resume.Store
	rng    *rand.Rand

	q        queue.Queue
	status   Status
	loading  bool
	volume   int
	elapsed  time.Duration
	duration time.Duration

	loadSeq        uint64
	loadCancel     context.CancelFunc
	progressCancel context.CancelFunc
	counted        bool                // Threshold already crossed for this load
	reported       map[string]struct{} // Item IDs counted this session
	restoreElapsed time.Duration       // Seek target for the first play after Restore

	persist     *debouncer
	unsubscribe func()
	closed      bool
}

// New creates the engine and subscribes it to command traffic on the bus.
// Exactly one engine should exist per process; the composition root is
// responsible for constructing it once.
func New(cfg Config, dev device.Device, bus *bridge.Bus, counts playcount.Reporter, store resume.Store) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:     cfg,
		dev:     dev,
		bus:     bus,
		counts:  counts,
		store:   store,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		q:        queue.Empty(),
		status:   StatusStopped,
		volume:   cfg.DefaultVolume,
		reported: make(map[string]struct{}),
		persist:  newDebouncer(cfg.PersistDebounce),
	}
	dev.SetVolume(e.volume)
	e.unsubscribe = bus.Subscribe(bridge.TopicCommand, e.handleCommand)
	return e
}

// handleCommand dispatches command traffic published by widgets.
func (e *Engine) handleCommand(payload any) {
	cmd, ok := payload.(bridge.Command)
	if !ok {
		zlog.Warn().Msgf("engine: ignoring non-command payload %T", payload)
		return
	}

	var err error
	switch c := cmd.(type) {
	case bridge.PlayList:
		err = e.PlayList(c.ListID, c.Items, c.StartID)
	case bridge.PlayItem:
		err = e.PlayItem(c.Item)
	case bridge.TogglePlayPause:
		e.TogglePlayPause()
	case bridge.Pause:
		e.Pause()
	case bridge.Resume:
		e.Resume()
	case bridge.Next:
		e.Next()
	case bridge.Previous:
		e.Previous()
	case bridge.Seek:
		e.Seek(c.Percent)
	case bridge.SetVolume:
		e.SetVolume(c.Percent)
	case bridge.InsertNext:
		e.InsertNext(c.Items)
	case bridge.AppendToQueue:
		e.Append(c.Items)
	case bridge.ToggleShuffle:
		e.ToggleShuffle()
	case bridge.CycleRepeat:
		e.CycleRepeat()
	default:
		zlog.Warn().Msgf("engine: unknown command %T", cmd)
	}
	if err != nil {
		zlog.Warn().Msgf("engine: command %T failed: %v", cmd, err)
	}
}

// PlayList plays a collection. A listID different from the loaded queue
// replaces the queue and starts at startID (or the first item). The same
// listID means "the context is already loaded": the call degrades to a
// play/pause toggle and the queue is left untouched, so clicking play on
// the album that is already playing resumes instead of restarting. A
// loaded queue whose cursor was cleared (it ran out under repeat-off) has
// nothing to toggle; playing it again is a fresh start.
func (e *Engine) PlayList(listID string, items []item.Item, startID string) error {
	e.mu.Lock()
	if listID == e.q.ListID && e.q.Len() > 0 && e.q.Cursor != queue.NoCursor {
		e.mu.Unlock()
		e.TogglePlayPause()
		return nil
	}

	start := 0
	if startID != "" {
		for i, it := range items {
			if it.ID == startID {
				start = i
				break
			}
		}
	}

	q, err := e.q.Replace(items, start, listID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.q = q
	e.startCurrentLocked()
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
	return nil
}

// PlayItem plays one item: a queue member becomes current, anything else
// becomes an ad hoc single-item queue whose list identity is the item ID.
func (e *Engine) PlayItem(it item.Item) error {
	e.mu.Lock()
	if idx := e.q.IndexOf(it.ID); idx != queue.NoCursor {
		e.q = e.q.WithCursor(idx)
	} else {
		q, err := e.q.Replace([]item.Item{it}, 0, it.ID)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		e.q = q
	}
	e.startCurrentLocked()
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
	return nil
}

// TogglePlayPause pauses when playing; otherwise resumes from the device
// position when there is one, or restarts the current item from the top.
func (e *Engine) TogglePlayPause() {
	e.mu.Lock()
	switch {
	case e.loading:
		// A load is in flight; its resolution decides the state.
		e.mu.Unlock()
		return
	case e.status == StatusPlaying:
		e.pauseLocked()
	default:
		if _, ok := e.q.Current(); !ok {
			e.mu.Unlock()
			return
		}
		if e.dev.Position() > 0 {
			e.resumeLocked()
		} else {
			e.startCurrentLocked()
		}
	}
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
}

// Pause pauses playback. No-op unless playing.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.status != StatusPlaying {
		e.mu.Unlock()
		return
	}
	e.pauseLocked()
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
}

func (e *Engine) pauseLocked() {
	e.cancelProgressLocked()
	e.dev.Pause()
	e.elapsed = e.dev.Position()
	e.status = StatusPaused
}

// Resume resumes playback. No-op without a current item; an item the
// device no longer holds (fresh restore, earlier failure) is restarted.
func (e *Engine) Resume() {
	e.mu.Lock()
	if _, ok := e.q.Current(); !ok || e.status == StatusPlaying || e.loading {
		e.mu.Unlock()
		return
	}
	if e.dev.Position() > 0 {
		e.resumeLocked()
	} else {
		e.startCurrentLocked()
	}
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
}

func (e *Engine) resumeLocked() {
	e.dev.Resume()
	e.status = StatusPlaying
	e.startProgressLocked(e.loadSeq)
}

// Next advances the queue. An exhausted queue stops playback; this is a
// normal outcome, not an error.
func (e *Engine) Next() {
	e.skip(func(q queue.Queue) queue.Queue { return q.Advance(e.rng) })
}

// Previous retreats the queue, mirroring Next.
func (e *Engine) Previous() {
	e.skip(func(q queue.Queue) queue.Queue { return q.Retreat(e.rng) })
}

func (e *Engine) skip(move func(queue.Queue) queue.Queue) {
	e.mu.Lock()
	e.q = move(e.q)
	if _, ok := e.q.Current(); !ok {
		e.stopLocked()
	} else {
		e.startCurrentLocked()
	}
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
}

// Seek moves the playhead to percent (0-100) of the item duration.
// Ignored while the duration is still unknown.
func (e *Engine) Seek(percent int) {
	e.mu.Lock()
	if e.duration <= 0 {
		e.mu.Unlock()
		return
	}
	percent = clampPercent(percent)
	pos := time.Duration(float64(e.duration) * float64(percent) / 100)
	if err := e.dev.SeekTo(pos); err != nil {
		zlog.Warn().Msgf("engine: seek to %d%% failed: %v", percent, err)
		e.mu.Unlock()
		return
	}
	e.elapsed = pos
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveDebounced()
}

// SetVolume sets the output volume (0-100).
func (e *Engine) SetVolume(percent int) {
	e.mu.Lock()
	e.volume = clampPercent(percent)
	e.dev.SetVolume(e.volume)
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
}

// InsertNext splices items directly after the current one. Playback state
// is untouched.
func (e *Engine) InsertNext(items []item.Item) {
	e.mu.Lock()
	e.q = e.q.InsertAfterCurrent(items)
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
}

// Append adds items to the end of the queue. Playback state is untouched.
func (e *Engine) Append(items []item.Item) {
	e.mu.Lock()
	e.q = e.q.Append(items)
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
}

// ToggleShuffle flips shuffle mode.
func (e *Engine) ToggleShuffle() {
	e.mu.Lock()
	e.q = e.q.ToggleShuffle()
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
}

// CycleRepeat steps the repeat mode through none/all/one.
func (e *Engine) CycleRepeat() {
	e.mu.Lock()
	e.q = e.q.CycleRepeat()
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
	e.saveNow(st)
}

// Snapshot returns the current playback state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Restore loads a persisted session: queue context, cursor, volume and
// modes, left paused. The remembered position is applied once, on the
// first successful play of the restored item. If the stream URL has
// expired in the meantime, that play fails through the normal error path;
// there is no refresh-and-retry.
func (e *Engine) Restore(snap resume.Snapshot, items []item.Item) {
	e.mu.Lock()
	e.volume = clampPercent(snap.Volume)
	e.dev.SetVolume(e.volume)

	if len(items) > 0 {
		start := 0
		for i, it := range items {
			if it.ID == snap.CurrentItemID {
				start = i
				break
			}
		}
		q, err := e.q.Replace(items, start, snap.ListID)
		if err == nil {
			e.q = q
			e.status = StatusPaused
			e.elapsed = time.Duration(snap.ElapsedSeconds * float64(time.Second))
			e.restoreElapsed = e.elapsed
		}
	}
	if snap.Shuffled != e.q.Shuffled {
		e.q = e.q.ToggleShuffle()
	}
	e.q.Repeat = queue.ParseRepeatMode(snap.RepeatMode)

	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
}

// Close persists a final snapshot, releases the device and detaches from
// the bus.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.cancelProgressLocked()
	if e.loadCancel != nil {
		e.loadCancel()
		e.loadCancel = nil
	}
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.unsubscribe()
	e.persist.Stop()
	e.saveNow(st)
	return e.dev.Close()
}

// startCurrentLocked begins loading and playing the item under the cursor.
// Must be called with the lock held.
func (e *Engine) startCurrentLocked() {
	it, ok := e.q.Current()
	if !ok {
		e.stopLocked()
		return
	}

	e.cancelProgressLocked()
	if e.loadCancel != nil {
		e.loadCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.loadCancel = cancel

	e.loadSeq++
	gen := e.loadSeq
	e.loading = true
	e.counted = false
	e.status = StatusPlaying // Intent; the load resolution confirms or reverts it
	e.elapsed = 0
	e.duration = 0

	go e.load(ctx, gen, it)
}

// load runs the blocking device call off the lock and reconciles the
// result against the generation that was current when it resolves.
func (e *Engine) load(ctx context.Context, gen uint64, it item.Item) {
	dur, err := e.dev.Play(ctx, it.StreamURL, func() { e.onItemEnd(gen, it) })

	e.mu.Lock()
	if gen != e.loadSeq || e.closed {
		// The user has moved on; this resolution belongs to a skipped item.
		zlog.Debug().Msgf("engine: discarding stale load result for %s", it.ID)
		e.mu.Unlock()
		return
	}

	if err != nil {
		zlog.Warn().Msgf("engine: device failed to start %s: %v", it.ID, err)
		e.loading = false
		e.status = StatusPaused
		st := e.snapshotLocked()
		e.mu.Unlock()

		e.bus.Publish(bridge.TopicError, PlaybackError{Item: it, Err: err})
		e.emit(st)
		e.saveNow(st)
		return
	}

	e.loading = false
	e.duration = dur
	if e.restoreElapsed > 0 {
		if seekErr := e.dev.SeekTo(e.restoreElapsed); seekErr == nil {
			e.elapsed = e.restoreElapsed
		}
		e.restoreElapsed = 0
	}
	if e.status == StatusPlaying {
		e.startProgressLocked(gen)
	} else {
		// Paused while the load was in flight; honor that.
		e.dev.Pause()
	}
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(st)
}

// onItemEnd handles natural completion of an item: the auto-advance policy
// is the same as an explicit Next, except that an exhausted queue leaves
// the engine stopped quietly.
func (e *Engine) onItemEnd(gen uint64, it item.Item) {
	e.mu.Lock()
	if gen != e.loadSeq || e.closed {
		e.mu.Unlock()
		return
	}

	e.q = e.q.Advance(e.rng)
	if _, ok := e.q.Current(); !ok {
		e.stopLocked()
	} else {
		e.startCurrentLocked()
	}
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.bus.Publish(bridge.TopicItemEnded, ItemEnded{Item: it})
	e.emit(st)
	e.saveNow(st)
}

// stopLocked halts the device and clears playback progress. Must be called
// with the lock held.
func (e *Engine) stopLocked() {
	e.cancelProgressLocked()
	if e.loadCancel != nil {
		e.loadCancel()
		e.loadCancel = nil
	}
	e.loadSeq++ // Invalidate any in-flight load
	e.dev.Stop()
	e.loading = false
	e.status = StatusStopped
	e.elapsed = 0
	e.duration = 0
}

// startProgressLocked starts the elapsed-time ticker for generation gen.
// At most one ticker runs at a time. Must be called with the lock held.
func (e *Engine) startProgressLocked(gen uint64) {
	e.cancelProgressLocked()
	ctx, cancel := context.WithCancel(context.Background())
	e.progressCancel = cancel

	go func() {
		ticker := time.NewTicker(e.cfg.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.tick(gen)
			}
		}
	}()
}

func (e *Engine) cancelProgressLocked() {
	if e.progressCancel != nil {
		e.progressCancel()
		e.progressCancel = nil
	}
}

// tick refreshes elapsed time, fires the play-count report once the
// threshold is reached, and schedules a debounced snapshot write.
func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.loadSeq || e.status != StatusPlaying || e.closed {
		// A stale tick from a previous item must not touch the new state.
		e.mu.Unlock()
		return
	}

	e.elapsed = e.dev.Position()
	if e.duration > 0 && e.elapsed > e.duration {
		e.elapsed = e.duration
	}

	var report bool
	var current item.Item
	if !e.counted && e.elapsed >= e.cfg.PlayCountThreshold {
		if it, ok := e.q.Current(); ok {
			e.counted = true
			// At most once per item per session; replays do not count again.
			if _, seen := e.reported[it.ID]; !seen {
				e.reported[it.ID] = struct{}{}
				report = true
				current = it
			}
		}
	}
	st := e.snapshotLocked()
	e.mu.Unlock()

	if report {
		// Fire-and-forget; failures are logged, never retried.
		go func() {
			if err := e.counts.Report(context.Background(), current.ID); err != nil {
				zlog.Warn().Msgf("engine: play-count report for %s failed: %v", current.ID, err)
			}
		}()
	}

	e.emit(st)
	e.saveDebounced()
}

func (e *Engine) snapshotLocked() State {
	st := State{
		ListID:   e.q.ListID,
		Items:    e.q.Items(),
		Cursor:   e.q.Cursor,
		Status:   e.status,
		Loading:  e.loading,
		Volume:   e.volume,
		Elapsed:  e.elapsed,
		Duration: e.duration,
		Shuffled: e.q.Shuffled,
		Repeat:   e.q.Repeat,
	}
	if it, ok := e.q.Current(); ok {
		st.Current = &it
	}
	return st
}

func (e *Engine) emit(st State) {
	e.bus.Publish(bridge.TopicState, StateChanged{State: st})
}

// saveNow persists a snapshot immediately; used for discrete fields
// (current item, status, modes, volume).
func (e *Engine) saveNow(st State) {
	if err := e.store.Save(toResumeSnapshot(st)); err != nil {
		zlog.Warn().Msgf("engine: failed to persist snapshot: %v", err)
	}
}

// saveDebounced batches high-frequency elapsed-time writes.
func (e *Engine) saveDebounced() {
	e.persist.Trigger(func() {
		e.saveNow(e.Snapshot())
	})
}

func toResumeSnapshot(st State) resume.Snapshot {
	snap := resume.Snapshot{
		ListID:         st.ListID,
		ElapsedSeconds: st.Elapsed.Seconds(),
		Volume:         st.Volume,
		RepeatMode:     st.Repeat.String(),
		Shuffled:       st.Shuffled,
	}
	if st.Current != nil {
		snap.CurrentItemID = st.Current.ID
	}
	return snap
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
