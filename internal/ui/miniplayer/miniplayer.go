// Package miniplayer provides the terminal playback widget. It is a pure
// presentation tier: every key binding publishes a command over the bridge
// and every rendered value comes from broadcast State snapshots. It holds
// no playback state of its own.
package miniplayer

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tonearm/tonearm/internal/app/bridge"
	"github.com/tonearm/tonearm/internal/app/engine"
	"github.com/tonearm/tonearm/internal/domain/item"
	"github.com/tonearm/tonearm/internal/domain/queue"
)

const (
	seekStepPercent = 5
	volumeStep      = 5
	errorTTL        = 5 * time.Second
)

// Playlist is one selectable collection in the library pane.
type Playlist struct {
	ID    string
	Name  string
	Items []item.Item
}

// Bridge messages forwarded into the bubbletea program.
type (
	stateMsg engine.State
	errMsg   engine.PlaybackError
)

// Model is the miniplayer bubbletea model.
type Model struct {
	bus     *bridge.Bus
	library []Playlist

	state    engine.State
	lastErr  string
	errSince time.Time

	selected int
	width    int
	height   int
	quitting bool
}

// NewModel creates the miniplayer over a bridge and a library of playlists.
func NewModel(bus *bridge.Bus, library []Playlist) Model {
	return Model{bus: bus, library: library}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		m.state = engine.State(msg)
		if m.lastErr != "" && time.Since(m.errSince) > errorTTL {
			m.lastErr = ""
		}
		return m, nil

	case errMsg:
		m.lastErr = fmt.Sprintf("%s: %v", msg.Item.Title, msg.Err)
		m.errSince = time.Now()
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case " ":
		m.publish(bridge.TogglePlayPause{})
	case "n":
		m.publish(bridge.Next{})
	case "p":
		m.publish(bridge.Previous{})
	case "s":
		m.publish(bridge.ToggleShuffle{})
	case "r":
		m.publish(bridge.CycleRepeat{})

	case "left":
		m.publish(bridge.Seek{Percent: m.elapsedPercent() - seekStepPercent})
	case "right":
		m.publish(bridge.Seek{Percent: m.elapsedPercent() + seekStepPercent})

	case "+", "=":
		m.publish(bridge.SetVolume{Percent: m.state.Volume + volumeStep})
	case "-":
		m.publish(bridge.SetVolume{Percent: m.state.Volume - volumeStep})

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.library)-1 {
			m.selected++
		}
	case "enter":
		if m.selected >= 0 && m.selected < len(m.library) {
			pl := m.library[m.selected]
			m.publish(bridge.PlayList{ListID: pl.ID, Items: pl.Items})
		}
	}
	return m, nil
}

// publish sends a command over the bridge. The engine handles it on its own
// goroutines, so the Update loop never blocks on the device.
func (m Model) publish(cmd bridge.Command) {
	m.bus.Publish(bridge.TopicCommand, cmd)
}

func (m Model) elapsedPercent() int {
	if m.state.Duration <= 0 {
		return 0
	}
	return int(float64(m.state.Elapsed) / float64(m.state.Duration) * 100)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.width
	if w < 30 {
		w = 60
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(m.renderNowPlaying())
	sb.WriteString("\n")
	sb.WriteString(m.renderProgress(w))
	sb.WriteString(m.renderStatus(w))
	sb.WriteString("\n")
	sb.WriteString(m.renderLibrary())
	if m.lastErr != "" {
		sb.WriteString("\n  ")
		sb.WriteString(errorStyle.Render(m.lastErr))
		sb.WriteString("\n")
	}
	sb.WriteString("\n  ")
	sb.WriteString(helpStyle.Render("space:play/pause  n/p:skip  ←/→:seek  +/-:volume  s:shuffle  r:repeat  ↑/↓ enter:playlist  q:quit"))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderNowPlaying() string {
	if m.state.Current == nil {
		return "  " + artistStyle.Render("Nothing playing") + "\n"
	}

	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(titleStyle.Render(m.state.Current.Title))
	if m.state.Loading {
		sb.WriteString(" ")
		sb.WriteString(statusStyle.Render("(loading...)"))
	}
	sb.WriteString("\n")
	if m.state.Current.AuthorName != "" {
		sb.WriteString("  ")
		sb.WriteString(artistStyle.Render(m.state.Current.AuthorName))
		sb.WriteString("\n")
	}
	if n := len(m.state.Items); n > 1 && m.state.Cursor != queue.NoCursor {
		sb.WriteString("  ")
		sb.WriteString(timeStyle.Render(fmt.Sprintf("track %d of %d", m.state.Cursor+1, n)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderProgress(w int) string {
	elapsed := formatDuration(m.state.Elapsed)
	duration := formatDuration(m.state.Duration)

	barWidth := w - len(elapsed) - len(duration) - 6
	if barWidth < 10 {
		barWidth = 10
	}

	filled := 0
	if m.state.Duration > 0 {
		filled = int(float64(barWidth) * float64(m.state.Elapsed) / float64(m.state.Duration))
		if filled > barWidth {
			filled = barWidth
		}
	}

	bar := barFilledStyle.Render(strings.Repeat("━", filled)) +
		barEmptyStyle.Render(strings.Repeat("─", barWidth-filled))

	return fmt.Sprintf("  %s %s %s\n",
		timeStyle.Render(elapsed), bar, timeStyle.Render(duration))
}

func (m Model) renderStatus(w int) string {
	icon := "■"
	switch m.state.Status {
	case engine.StatusPlaying:
		icon = "▶"
	case engine.StatusPaused:
		icon = "❚❚"
	}

	left := fmt.Sprintf("%s  %s", icon, strings.ToLower(m.state.Status.String()))
	if m.state.Shuffled {
		left += "  ⤮ shuffle"
	}
	switch m.state.Repeat {
	case queue.RepeatAll:
		left += "  ⟳ all"
	case queue.RepeatOne:
		left += "  ⟳ one"
	}
	right := fmt.Sprintf("vol %d%%", m.state.Volume)

	gap := w - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if gap < 2 {
		gap = 2
	}
	return "  " + statusStyle.Render(left) + strings.Repeat(" ", gap) + statusStyle.Render(right) + "\n"
}

func (m Model) renderLibrary() string {
	if len(m.library) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(statusStyle.Render("Library"))
	sb.WriteString("\n")
	for i, pl := range m.library {
		line := fmt.Sprintf("%s  %d tracks", pl.Name, len(pl.Items))
		switch {
		case i == m.selected:
			sb.WriteString("  " + selectedStyle.Render("> "+line))
		case pl.ID == m.state.ListID:
			sb.WriteString("    " + currentListStyle.Render(line))
		default:
			sb.WriteString("    " + listStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Run attaches the miniplayer to the bridge and blocks until the user quits.
// State broadcast on the bus is forwarded into the program as messages.
func Run(bus *bridge.Bus, library []Playlist) error {
	p := tea.NewProgram(NewModel(bus, library), tea.WithAltScreen())

	unsubState := bus.Subscribe(bridge.TopicState, func(payload any) {
		if sc, ok := payload.(engine.StateChanged); ok {
			p.Send(stateMsg(sc.State))
		}
	})
	defer unsubState()
	unsubErr := bus.Subscribe(bridge.TopicError, func(payload any) {
		if pe, ok := payload.(engine.PlaybackError); ok {
			p.Send(errMsg(pe))
		}
	})
	defer unsubErr()

	_, err := p.Run()
	return err
}
