// Package tui provides a Bubble Tea terminal user interface for ncmdump.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/ncmdump/internal/config"
	"github.com/handiism/ncmdump/internal/dump"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// maxLogs is how many log lines stay on screen.
const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDumping
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   dump.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	report    *dump.Report
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	manager *dump.Manager
	events  chan dump.ProgressEvent

	// Progress
	phase      dump.Phase
	filesTotal int32
	filesDone  int32
	bytesTotal int64
	bytesDone  int64

	width  int
	height int
}

// NewModel creates a new TUI model. A nil settings uses the defaults.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.Placeholder = "~/Music/*.ncm ~/Downloads"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one event from the pipeline.
	ProgressMsg struct {
		Event dump.ProgressEvent
	}

	// InitDoneMsg is sent when the targets have been expanded.
	InitDoneMsg struct {
		Manager *dump.Manager
		Files   int
		Err     error
	}

	// DumpDoneMsg is sent when the run finishes.
	DumpDoneMsg struct {
		Report *dump.Report
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDumping || m.state == StateInitializing {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StateInitializing
				m.events = make(chan dump.ProgressEvent, 256)
				return m, tea.Batch(m.initialize(), waitForEvent(m.events), m.spinner.Tick)
			}

		case "ctrl+r":
			if m.state == StateInput {
				m.settings.Recursive = !m.settings.Recursive
			}
			return m, nil

		case "ctrl+o":
			if m.state == StateInput {
				m.settings.Overwrite = !m.settings.Overwrite
			}
			return m, nil

		case "ctrl+t":
			if m.state == StateInput {
				m.settings.Verbose = !m.settings.Verbose
			}
			return m, nil

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m = m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, waitForEvent(m.events))
		if msg.Event.Level == dump.LevelVerbose && !m.settings.Verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			close(m.events)
		} else {
			m.manager = msg.Manager
			m.state = StateDumping
			cmds = append(cmds, m.start(), m.tickProgress())
		}

	case DumpDoneMsg:
		m.report = msg.Report
		m.updateProgress()
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDumping {
			m.updateProgress()
			var percent float64
			if m.bytesTotal > 0 {
				percent = float64(m.bytesDone) / float64(m.bytesTotal)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateProgress() {
	if m.manager == nil {
		return
	}
	m.bytesDone, m.bytesTotal, m.filesDone, m.filesTotal = m.manager.GetProgress()
	m.phase = m.manager.Phase()
}

// reset prepares the model for another run, keeping the option toggles.
func (m Model) reset() Model {
	m.state = StateInput
	m.logs = nil
	m.report = nil
	m.err = nil
	m.manager = nil
	m.events = nil
	m.phase = dump.PhaseIdle
	m.filesDone, m.filesTotal = 0, 0
	m.bytesDone, m.bytesTotal = 0, 0
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next pipeline event, or nothing once the run
// has closed the channel.
func waitForEvent(events <-chan dump.ProgressEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♫ ncmdump"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Recover audio from encrypted music containers"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDumping:
		b.WriteString(m.viewDumping())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Files, directories or patterns:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Recursive (ctrl+r)\n", checkbox(m.settings.Recursive)))
	b.WriteString(fmt.Sprintf("  %s Overwrite existing files (ctrl+o)\n", checkbox(m.settings.Overwrite)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+t)\n", checkbox(m.settings.Verbose)))
	b.WriteString("\n")

	output := m.settings.OutputDir
	if output == "" {
		output = "next to each input"
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output: %s | Workers: %d", output, m.settings.Workers)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Looking for files..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDumping() string {
	var b strings.Builder

	var percent float64
	if m.bytesTotal > 0 {
		percent = float64(m.bytesDone) / float64(m.bytesTotal)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Processed: %.2f/%.2f MB | %s",
		m.filesDone,
		m.filesTotal,
		float64(m.bytesDone)/1024/1024,
		float64(m.bytesTotal)/1024/1024,
		m.phase,
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	written, failed := 0, 0
	if m.report != nil {
		written, failed = len(m.report.Written), len(m.report.Failures)
	}

	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"✨ Done!\n\n"+
			"Written: %d\n"+
			"Skipped: %d\n"+
			"Size: %.2f MB",
		written,
		failed,
		float64(m.bytesTotal)/1024/1024,
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case dump.LevelError:
			style = errorStyle
			prefix = "✗"
		case dump.LevelWarning:
			style = warningStyle
			prefix = "!"
		case dump.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case dump.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+r: recursive • ctrl+o: overwrite • ctrl+t: verbose • esc: quit"
	case StateInitializing, StateDumping:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new run • q: quit"
	}
	return ""
}

// splitTargets splits the input on whitespace and commas.
func splitTargets(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// initialize expands the targets and creates the manager.
func (m *Model) initialize() tea.Cmd {
	targets := splitTargets(m.textInput.Value())
	settings := *m.settings
	events := m.events

	return func() tea.Msg {
		manager := dump.NewManager(&settings, func(event dump.ProgressEvent) {
			select {
			case events <- event:
			default:
				// The screen only keeps the latest lines.
			}
		})

		if err := manager.Initialize(targets); err != nil {
			return InitDoneMsg{Err: err}
		}
		return InitDoneMsg{Manager: manager, Files: len(manager.Paths())}
	}
}

// start runs the pipeline in the background.
func (m *Model) start() tea.Cmd {
	manager, ctx, events := m.manager, m.ctx, m.events

	return func() tea.Msg {
		if manager == nil {
			return DumpDoneMsg{Err: fmt.Errorf("no manager")}
		}

		report, err := manager.Start(ctx)
		close(events)
		return DumpDoneMsg{Report: report, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
