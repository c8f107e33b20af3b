package console

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"gitlab.com/simongoricar/euphony/src/internal/event"
)

const maxLogLines = 8

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

type eventMsg event.Event

type channelClosedMsg struct{}

// TUI is the interactive bubbletea frontend. It never touches job
// completion bookkeeping itself - it only renders whatever events arrive on
// its own channel, fed by an orchestrator.WithEventSink callback. waitForEvent
// turns a channel receive into a tea.Cmd that Update re-arms after every
// message, so the program keeps draining the channel for as long as it stays
// open.
type TUI struct {
	runID   string
	events  <-chan event.Event
	control chan<- event.ControlMessage

	width, height int

	counters Counters
	active   string
	logLines []string

	done bool
}

// NewTUI builds a TUI frontend. events is read until closed; control, if
// non-nil, receives event.Exit when the user requests a stop.
func NewTUI(runID string, events <-chan event.Event, control chan<- event.ControlMessage) *TUI {
	return &TUI{runID: runID, events: events, control: control}
}

func (m *TUI) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *TUI) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(e)
	}
}

func (m *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.control != nil {
				select {
				case m.control <- event.Exit:
				default:
				}
			}
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m.apply(event.Event(msg))
		return m, m.waitForEvent()

	case channelClosedMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *TUI) apply(e event.Event) {
	m.counters.Observe(e)

	switch evt := e.(type) {
	case event.Starting:
		m.active = evt.Path
		m.pushLog(fmt.Sprintf("starting %s", evt.Path))
	case event.Finished:
		m.active = ""
		if evt.Result.OK {
			m.pushLog(fmt.Sprintf("done %s", evt.Path))
		} else {
			m.pushLog(fmt.Sprintf("failed %s: %s", evt.Path, evt.Result.Message))
		}
	case event.Cancelled:
		m.active = ""
		m.pushLog(fmt.Sprintf("cancelled %s", evt.Path))
	case event.Log:
		m.pushLog(evt.Text)
	}
}

func (m *TUI) pushLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
}

func (m *TUI) View() string {
	counters := m.counters.Snapshot()

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("euphony  run %s", m.runID)))
	b.WriteString("\n\n")

	if m.active != "" {
		b.WriteString(activeStyle.Render("▸ " + m.active))
	} else if m.done {
		b.WriteString(mutedStyle.Render("run finished"))
	} else {
		b.WriteString(mutedStyle.Render("waiting for work"))
	}
	b.WriteString("\n\n")

	for _, line := range m.logLines {
		style := mutedStyle
		if strings.HasPrefix(line, "failed") {
			style = failedStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf(
		"%d finished · %d failed · %d cancelled · %s copied",
		counters.Finished, counters.Failed, counters.Cancelled,
		humanize.Bytes(counters.BytesCopied),
	)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("q to quit"))

	return b.String()
}

// RunStart is a convenience the CLI calls to build a tea.Program wired to
// the given run id, events channel and control channel, with the alt
// screen enabled.
func RunStart(runID string, events <-chan event.Event, control chan<- event.ControlMessage) *tea.Program {
	model := NewTUI(runID, events, control)
	return tea.NewProgram(model, tea.WithAltScreen())
}
