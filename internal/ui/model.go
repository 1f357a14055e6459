// ABOUTME: bubbletea model for the play TUI
// ABOUTME: Track and stream info, ADPCM decode counters and a volume meter
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const volumeStep = 5

// StatusMsg updates the model. Zero fields keep the current value.
type StatusMsg struct {
	Title      string
	Artist     string
	Album      string
	Format     string
	Output     string
	SampleRate int
	Channels   int
	Played     uint64 // interleaved samples written to the output
	Chunks     uint64 // ADPCM chunks decoded
	Errors     uint64 // ADPCM chunks that failed
	Finished   bool
}

// Model is the play TUI state
type Model struct {
	status StatusMsg
	volume int
	muted  bool
	ctrl   *Controls
	width  int
}

// NewModel creates a model at full volume. ctrl may be nil.
func NewModel(ctrl *Controls) Model {
	return Model{volume: 100, ctrl: ctrl}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.onKey(msg.String())
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StatusMsg:
		m.merge(msg)
	}
	return m, nil
}

func (m Model) onKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc", "ctrl+c":
		if m.ctrl != nil {
			select {
			case m.ctrl.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "up", "+", "=":
		m.volume = min(m.volume+volumeStep, 100)
	case "down", "-":
		m.volume = max(m.volume-volumeStep, 0)
	case "m":
		m.muted = !m.muted
	default:
		return m, nil
	}

	if m.ctrl != nil {
		select {
		case m.ctrl.Volume <- VolumeChange{Volume: m.volume, Muted: m.muted}:
		default:
		}
	}
	return m, nil
}

func (m *Model) merge(msg StatusMsg) {
	s := &m.status
	if msg.Title != "" {
		s.Title, s.Artist, s.Album = msg.Title, msg.Artist, msg.Album
	}
	if msg.Format != "" {
		s.Format = msg.Format
	}
	if msg.Output != "" {
		s.Output = msg.Output
	}
	if msg.SampleRate != 0 {
		s.SampleRate, s.Channels = msg.SampleRate, msg.Channels
	}
	if msg.Played != 0 {
		s.Played = msg.Played
	}
	if msg.Chunks != 0 {
		s.Chunks = msg.Chunks
	}
	if msg.Errors != 0 {
		s.Errors = msg.Errors
	}
	s.Finished = s.Finished || msg.Finished
}

// Elapsed converts the played sample count to time
func (m Model) Elapsed() time.Duration {
	s := m.status
	if s.SampleRate <= 0 || s.Channels <= 0 {
		return 0
	}
	frames := s.Played / uint64(s.Channels)
	return time.Duration(frames) * time.Second / time.Duration(s.SampleRate)
}

var (
	appStyle   = lipgloss.NewStyle().Padding(1, 2)
	nameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(8)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	s := m.status
	field := m.width - 16
	if field < 20 {
		field = 20
	}

	state := "playing"
	if s.Finished {
		state = "finished"
	}
	lines := []string{
		nameStyle.Render("imaqt player") + "  " + stateStyle.Render(state),
		"",
		row("track", truncate(s.Title, field)),
	}
	if s.Artist != "" {
		lines = append(lines, row("artist", truncate(s.Artist, field)))
	}
	if s.Album != "" {
		lines = append(lines, row("album", truncate(s.Album, field)))
	}
	lines = append(lines,
		row("stream", fmt.Sprintf("%s %dHz %s via %s", s.Format, s.SampleRate, channelName(s.Channels), s.Output)),
		row("time", clock(m.Elapsed())),
	)
	if s.Chunks > 0 || s.Errors > 0 {
		adpcm := fmt.Sprintf("%d chunks", s.Chunks)
		if s.Errors > 0 {
			adpcm += errStyle.Render(fmt.Sprintf(", %d failed", s.Errors))
		}
		lines = append(lines, row("adpcm", adpcm))
	}

	vol := fmt.Sprintf("%s %3d%%", meter(m.volume, 20), m.volume)
	if m.muted {
		vol += " muted"
	}
	lines = append(lines, row("volume", vol), helpStyle.Render("up/down volume  m mute  q quit"))

	return appStyle.Render(strings.Join(lines, "\n"))
}

func row(key, value string) string {
	return keyStyle.Render(key) + value
}

// clock formats d as m:ss
func clock(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// meter draws value/100 as a bar of width cells
func meter(value, width int) string {
	filled := value * width / 100
	return strings.Repeat("=", filled) + strings.Repeat("-", width-filled)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	}
	return fmt.Sprintf("%dch", channels)
}
