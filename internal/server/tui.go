// ABOUTME: Relay dashboard listing connections and open codec sessions
// ABOUTME: Pulls snapshots from the server when poked and once a second
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sendspin/imaqt-go/pkg/protocol"
)

// RelayStatus is one snapshot of relay state
type RelayStatus struct {
	Name        string
	Port        int
	Backends    []string
	Connections int
	Sessions    []SessionInfo
}

// Dashboard is the relay's terminal UI. The server pokes it on every
// connection or session change; the model then asks for a fresh snapshot.
type Dashboard struct {
	program *tea.Program
	poke    chan struct{}
	quit    chan struct{}
	stop    sync.Once
}

// NewDashboard creates a dashboard reading state from snapshot
func NewDashboard(snapshot func() RelayStatus) *Dashboard {
	d := &Dashboard{
		poke: make(chan struct{}, 1),
		quit: make(chan struct{}, 1),
	}
	d.program = tea.NewProgram(dashboardModel{
		snapshot: snapshot,
		poke:     d.poke,
		quit:     d.quit,
		started:  time.Now(),
	}, tea.WithAltScreen())
	return d
}

// Run blocks until the dashboard exits
func (d *Dashboard) Run() error {
	_, err := d.program.Run()
	return err
}

// Refresh asks for a new snapshot. Pokes coalesce while one is pending.
func (d *Dashboard) Refresh() {
	select {
	case d.poke <- struct{}{}:
	default:
	}
}

// Stop exits the dashboard
func (d *Dashboard) Stop() {
	d.stop.Do(d.program.Quit)
}

// Quit signals when the user asks to leave
func (d *Dashboard) Quit() <-chan struct{} {
	return d.quit
}

type (
	pokeMsg   struct{}
	secondMsg time.Time
	statusMsg RelayStatus
)

type dashboardModel struct {
	snapshot func() RelayStatus
	poke     <-chan struct{}
	quit     chan<- struct{}

	status  RelayStatus
	started time.Time
	leaving bool
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.refresh, waitForPoke(m.poke), everySecond())
}

func (m dashboardModel) refresh() tea.Msg {
	return statusMsg(m.snapshot())
}

func waitForPoke(poke <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-poke
		return pokeMsg{}
	}
}

func everySecond() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg { return secondMsg(t) })
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.leaving = true
			select {
			case m.quit <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}
	case pokeMsg:
		return m, tea.Batch(m.refresh, waitForPoke(m.poke))
	case secondMsg:
		// session ages move even when nothing else does
		return m, tea.Batch(m.refresh, everySecond())
	case statusMsg:
		m.status = RelayStatus(msg)
	}
	return m, nil
}

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	columnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const rowFormat = "%-8s  %-9s  %-7s  %-13s  %8s  %6s  %6s  %s"

func (m dashboardModel) View() string {
	if m.leaving {
		return "Stopping relay...\n"
	}

	st := m.status
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n\n", bannerStyle.Render(st.Name), dimStyle.Render(fmt.Sprintf(":%d%s", st.Port, protocol.Path)))
	fmt.Fprintf(&b, "%s %s   %s %d   %s %s\n",
		labelStyle.Render("up"), time.Since(m.started).Round(time.Second),
		labelStyle.Render("peers"), st.Connections,
		labelStyle.Render("codecs"), strings.Join(st.Backends, ","))
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("sessions"), modeSummary(st.Sessions))

	if len(st.Sessions) == 0 {
		b.WriteString(dimStyle.Render("no open sessions"))
		b.WriteString("\n")
	} else {
		b.WriteString(columnStyle.Render(fmt.Sprintf(rowFormat, "ID", "MODE", "CODEC", "FORMAT", "INPUTS", "FAILED", "AGE", "PEER")))
		b.WriteString("\n")
		for _, sess := range st.Sessions {
			b.WriteString(sessionRow(sess))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to stop the relay"))
	return b.String()
}

// modeSummary counts sessions per mode, e.g. "3 (2 decode, 1 transcode)"
func modeSummary(sessions []SessionInfo) string {
	if len(sessions) == 0 {
		return "0"
	}
	counts := map[protocol.Mode]int{}
	for _, sess := range sessions {
		counts[sess.Mode]++
	}
	var parts []string
	for _, mode := range []protocol.Mode{protocol.ModeDecode, protocol.ModeEncode, protocol.ModeTranscode} {
		if n := counts[mode]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, mode))
		}
	}
	return fmt.Sprintf("%d (%s)", len(sessions), strings.Join(parts, ", "))
}

// sessionRow renders one table row. IDs are cut to eight characters.
func sessionRow(sess SessionInfo) string {
	id := sess.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	format := fmt.Sprintf("%dHz/%dch", sess.SampleRate, sess.Channels)
	failed := fmt.Sprintf("%d", sess.Failed)
	if sess.Failed > 0 {
		failed = failedStyle.Render(failed)
	}
	return fmt.Sprintf(rowFormat, id, sess.Mode, sess.Backend, format,
		fmt.Sprintf("%d", sess.Inputs), failed, sess.Age.Round(time.Second), sess.RemoteAddr)
}
