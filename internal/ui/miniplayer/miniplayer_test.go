package miniplayer

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/tonearm/internal/app/bridge"
	"github.com/tonearm/tonearm/internal/app/engine"
	"github.com/tonearm/tonearm/internal/domain/item"
)

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testLibrary() []Playlist {
	return []Playlist{
		{ID: "pl-1", Name: "Morning", Items: []item.Item{{ID: "a", Title: "A"}}},
		{ID: "pl-2", Name: "Evening", Items: []item.Item{{ID: "b", Title: "B"}, {ID: "c", Title: "C"}}},
	}
}

func captureCommands(bus *bridge.Bus) *[]bridge.Command {
	var cmds []bridge.Command
	bus.Subscribe(bridge.TopicCommand, func(payload any) {
		cmds = append(cmds, payload.(bridge.Command))
	})
	return &cmds
}

func TestModel_KeysPublishCommands(t *testing.T) {
	tests := []struct {
		key  string
		want bridge.Command
	}{
		{" ", bridge.TogglePlayPause{}},
		{"n", bridge.Next{}},
		{"p", bridge.Previous{}},
		{"s", bridge.ToggleShuffle{}},
		{"r", bridge.CycleRepeat{}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			bus := bridge.New()
			cmds := captureCommands(bus)
			m := NewModel(bus, nil)

			m.Update(key(tt.key))

			require.Len(t, *cmds, 1)
			assert.Equal(t, tt.want, (*cmds)[0])
		})
	}
}

func TestModel_VolumeKeysStepFromState(t *testing.T) {
	bus := bridge.New()
	cmds := captureCommands(bus)
	m := NewModel(bus, nil)

	updated, _ := m.Update(stateMsg(engine.State{Volume: 50}))
	m = updated.(Model)

	m.Update(key("+"))
	m.Update(key("-"))

	require.Len(t, *cmds, 2)
	assert.Equal(t, bridge.SetVolume{Percent: 55}, (*cmds)[0])
	assert.Equal(t, bridge.SetVolume{Percent: 45}, (*cmds)[1])
}

func TestModel_SeekKeysStepFromElapsed(t *testing.T) {
	bus := bridge.New()
	cmds := captureCommands(bus)
	m := NewModel(bus, nil)

	// 60s into a 3-minute track: 33%.
	updated, _ := m.Update(stateMsg(engine.State{
		Elapsed:  time.Minute,
		Duration: 3 * time.Minute,
	}))
	m = updated.(Model)

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})

	require.Len(t, *cmds, 2)
	assert.Equal(t, bridge.Seek{Percent: 38}, (*cmds)[0])
	assert.Equal(t, bridge.Seek{Percent: 28}, (*cmds)[1])
}

func TestModel_EnterPlaysSelectedPlaylist(t *testing.T) {
	bus := bridge.New()
	cmds := captureCommands(bus)
	m := NewModel(bus, testLibrary())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, *cmds, 1)
	pl, ok := (*cmds)[0].(bridge.PlayList)
	require.True(t, ok)
	assert.Equal(t, "pl-2", pl.ListID)
	assert.Equal(t, []string{"b", "c"}, item.IDs(pl.Items))
}

func TestModel_SelectionStaysInBounds(t *testing.T) {
	m := NewModel(bridge.New(), testLibrary())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	assert.Equal(t, 0, m.selected)

	for i := 0; i < 5; i++ {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
		m = updated.(Model)
	}
	assert.Equal(t, 1, m.selected)
}

func TestModel_ViewRendersState(t *testing.T) {
	m := NewModel(bridge.New(), testLibrary())

	updated, _ := m.Update(stateMsg(engine.State{
		ListID:   "pl-2",
		Items:    testLibrary()[1].Items,
		Cursor:   1,
		Current:  &item.Item{ID: "c", Title: "Kind of Blue", AuthorName: "Miles Davis"},
		Status:   engine.StatusPlaying,
		Volume:   80,
		Elapsed:  30 * time.Second,
		Duration: 3 * time.Minute,
	}))
	m = updated.(Model)

	view := m.View()
	assert.Contains(t, view, "Kind of Blue")
	assert.Contains(t, view, "Miles Davis")
	assert.Contains(t, view, "track 2 of 2")
	assert.Contains(t, view, "0:30")
	assert.Contains(t, view, "3:00")
	assert.Contains(t, view, "vol 80%")
	assert.Contains(t, view, "Morning")
}

func TestModel_ViewShowsPlaybackError(t *testing.T) {
	m := NewModel(bridge.New(), nil)

	updated, _ := m.Update(errMsg(engine.PlaybackError{
		Item: item.Item{ID: "a", Title: "Flamenco Sketches"},
		Err:  errors.New("decode failed"),
	}))
	m = updated.(Model)

	assert.Contains(t, m.View(), "decode failed")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", formatDuration(0))
	assert.Equal(t, "0:05", formatDuration(5*time.Second))
	assert.Equal(t, "1:30", formatDuration(90*time.Second))
	assert.Equal(t, "10:00", formatDuration(10*time.Minute))
	assert.Equal(t, "0:00", formatDuration(-time.Second))
}
