// ABOUTME: Play TUI program and the channels it reports user input on
// ABOUTME: The playback loop feeds it StatusMsg values through Program.Send
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChange carries the level and mute state after a key press
type VolumeChange struct {
	Volume int
	Muted  bool
}

// Controls reports user input back to the playback loop. Sends never
// block; a full channel drops the event.
type Controls struct {
	Volume chan VolumeChange
	Quit   chan struct{}
}

// NewControls creates buffered control channels
func NewControls() *Controls {
	return &Controls{
		Volume: make(chan VolumeChange, 10),
		Quit:   make(chan struct{}, 1),
	}
}

// New creates the play TUI. The caller runs it.
func New(ctrl *Controls) *tea.Program {
	return tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
}
