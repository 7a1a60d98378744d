// Package queue provides the play queue with shuffle and repeat semantics.
//
// A Queue is a value: every operation returns a new Queue and never mutates
// the receiver, so callers can hold snapshots without defensive copying.
package queue

import (
	"math/rand"

	"github.com/cockroachdb/errors"

	"github.com/tonearm/tonearm/internal/domain/item"
)

// ErrInvalidIndex is returned when a start index is out of range.
// It indicates a programming error in the caller, not a runtime condition.
var ErrInvalidIndex = errors.New("start index out of range")

// NoCursor marks a queue with no current item.
const NoCursor = -1

// RepeatMode controls what happens at the edges of the queue.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota // Stop at the end of the queue
	RepeatAll                    // Wrap around to the other end
	RepeatOne                    // Stay on the current item
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatNone:
		return "none"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// ParseRepeatMode parses a repeat mode name as produced by String.
// Unknown names map to RepeatNone.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "all":
		return RepeatAll
	case "one":
		return RepeatOne
	default:
		return RepeatNone
	}
}

// Cycle returns the next mode in the NONE -> ALL -> ONE -> NONE cycle.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

// Queue is an ordered sequence of playable items plus cursor, shuffle and
// repeat state. ListID identifies the originating collection (album hash,
// playlist hash, or a single item ID for ad hoc queues) and is what
// distinguishes "same context" commands from context switches.
type Queue struct {
	items    []item.Item
	ListID   string
	Cursor   int
	Shuffled bool
	Repeat   RepeatMode
}

// Empty returns a queue with no items and no cursor.
func Empty() Queue {
	return Queue{Cursor: NoCursor}
}

// Replace returns a queue holding exactly items, with the cursor at
// startIndex and the given list identity. The previous sequence is fully
// discarded. Shuffle and repeat settings carry over.
func (q Queue) Replace(items []item.Item, startIndex int, listID string) (Queue, error) {
	if len(items) == 0 {
		next := q
		next.items = nil
		next.ListID = listID
		next.Cursor = NoCursor
		return next, nil
	}
	if startIndex < 0 || startIndex >= len(items) {
		return q, errors.Wrapf(ErrInvalidIndex, "index %d, length %d", startIndex, len(items))
	}

	next := q
	next.items = append([]item.Item(nil), items...)
	next.ListID = listID
	next.Cursor = startIndex
	return next, nil
}

// InsertAfterCurrent splices items immediately after the cursor. The cursor
// does not move. Inserting into an empty queue is a no-op; callers must
// Replace first.
func (q Queue) InsertAfterCurrent(items []item.Item) Queue {
	if len(items) == 0 || q.Len() == 0 || q.Cursor == NoCursor {
		return q
	}

	next := q
	merged := make([]item.Item, 0, len(q.items)+len(items))
	merged = append(merged, q.items[:q.Cursor+1]...)
	merged = append(merged, items...)
	merged = append(merged, q.items[q.Cursor+1:]...)
	next.items = merged
	return next
}

// Append adds items to the end of the queue. The cursor does not move.
func (q Queue) Append(items []item.Item) Queue {
	if len(items) == 0 {
		return q
	}

	next := q
	merged := make([]item.Item, 0, len(q.items)+len(items))
	merged = append(merged, q.items...)
	merged = append(merged, items...)
	next.items = merged
	return next
}

// Advance moves the cursor to the next item.
//
// With shuffle on, the next index is picked uniformly at random over the
// whole sequence and may land on the current item again. Otherwise the
// cursor steps forward, and at the last index the repeat mode decides:
// RepeatAll wraps to the start, RepeatOne stays put, RepeatNone clears the
// cursor. Advancing a queue with no cursor keeps it cleared.
func (q Queue) Advance(rng *rand.Rand) Queue {
	next := q
	next.Cursor = q.step(rng, +1)
	return next
}

// Retreat moves the cursor to the previous item, mirroring Advance: wraps to
// the last index on RepeatAll, stays on RepeatOne, clears the cursor on
// RepeatNone at index 0. Shuffle again picks a random index rather than
// true history-back.
func (q Queue) Retreat(rng *rand.Rand) Queue {
	next := q
	next.Cursor = q.step(rng, -1)
	return next
}

func (q Queue) step(rng *rand.Rand, dir int) int {
	if q.Cursor == NoCursor || len(q.items) == 0 {
		return NoCursor
	}

	if q.Shuffled {
		return pickIndex(rng, len(q.items))
	}

	// Repeat-one pins the cursor; the caller restarts the same item.
	if q.Repeat == RepeatOne {
		return q.Cursor
	}

	candidate := q.Cursor + dir
	if candidate >= 0 && candidate < len(q.items) {
		return candidate
	}

	// At the edge of the sequence.
	if q.Repeat == RepeatAll {
		if dir > 0 {
			return 0
		}
		return len(q.items) - 1
	}
	return NoCursor
}

func pickIndex(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.Intn(n)
	}
	return rng.Intn(n)
}

// ToggleShuffle flips the shuffle flag. The underlying order and the cursor
// are untouched, so turning shuffle off restores sequential playback over
// the original order.
func (q Queue) ToggleShuffle() Queue {
	next := q
	next.Shuffled = !q.Shuffled
	return next
}

// CycleRepeat advances the repeat mode through NONE -> ALL -> ONE -> NONE.
func (q Queue) CycleRepeat() Queue {
	next := q
	next.Repeat = q.Repeat.Cycle()
	return next
}

// WithCursor returns the queue with the cursor moved to index. Out-of-range
// indexes clear the cursor.
func (q Queue) WithCursor(index int) Queue {
	next := q
	if index < 0 || index >= len(q.items) {
		next.Cursor = NoCursor
	} else {
		next.Cursor = index
	}
	return next
}

// Current returns the item under the cursor.
func (q Queue) Current() (item.Item, bool) {
	if q.Cursor == NoCursor || q.Cursor >= len(q.items) {
		return item.Item{}, false
	}
	return q.items[q.Cursor], true
}

// Items returns a copy of the sequence.
func (q Queue) Items() []item.Item {
	out := make([]item.Item, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of items in the queue.
func (q Queue) Len() int {
	return len(q.items)
}

// IndexOf returns the index of the item with the given ID, or NoCursor.
func (q Queue) IndexOf(id string) int {
	for i, it := range q.items {
		if it.ID == id {
			return i
		}
	}
	return NoCursor
}
