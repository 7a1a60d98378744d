package bridge

import "github.com/tonearm/tonearm/internal/domain/item"

// Command is the closed set of playback commands a widget may publish on
// TopicCommand. Each variant carries only the fields its handler needs.
// The engine is the intended (single) subscriber, though the bus itself
// does not enforce that.
type Command interface {
	isCommand()
}

// PlayList starts playing a collection. When ListID matches the queue that
// is already loaded, the engine treats it as a play/pause toggle instead of
// rebuilding the queue.
type PlayList struct {
	ListID  string
	Items   []item.Item
	StartID string // Optional; empty means the first item
}

// PlayItem plays one item: jumps to it when it is already in the queue,
// otherwise loads it as an ad hoc single-item queue.
type PlayItem struct {
	Item item.Item
}

// TogglePlayPause pauses when playing, otherwise resumes or restarts.
type TogglePlayPause struct{}

// Pause pauses the device.
type Pause struct{}

// Resume resumes the device. No-op without a current item.
type Resume struct{}

// Next skips to the next item per the queue's shuffle/repeat rules.
type Next struct{}

// Previous skips to the previous item.
type Previous struct{}

// Seek moves the playhead to a percentage of the item duration.
type Seek struct {
	Percent int // 0..100
}

// SetVolume sets the output volume.
type SetVolume struct {
	Percent int // 0..100
}

// InsertNext splices items directly after the current one.
type InsertNext struct {
	Items []item.Item
}

// AppendToQueue adds items to the end of the queue.
type AppendToQueue struct {
	Items []item.Item
}

// ToggleShuffle flips shuffle mode.
type ToggleShuffle struct{}

// CycleRepeat steps the repeat mode through none/all/one.
type CycleRepeat struct{}

func (PlayList) isCommand()        {}
func (PlayItem) isCommand()        {}
func (TogglePlayPause) isCommand() {}
func (Pause) isCommand()           {}
func (Resume) isCommand()          {}
func (Next) isCommand()            {}
func (Previous) isCommand()        {}
func (Seek) isCommand()            {}
func (SetVolume) isCommand()       {}
func (InsertNext) isCommand()      {}
func (AppendToQueue) isCommand()   {}
func (ToggleShuffle) isCommand()   {}
func (CycleRepeat) isCommand()     {}
