package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// TargetStartMsg is sent when a target's unfollow begins
type TargetStartMsg struct {
	ID string
}

// TargetResultMsg is sent when a target resolves
type TargetResultMsg struct {
	ID    string
	State TargetState
	Error error
}

// RunFinishedMsg is sent when the whole run ends
type RunFinishedMsg struct {
	State string
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tea.Batch(
			tickCmd(),
			m.spinner.Tick,
		)

	case TargetStartMsg:
		m.StartTarget(msg.ID)
		return m, nil

	case TargetResultMsg:
		m.FinishTarget(msg.ID, msg.State, msg.Error)
		return m, nil

	case RunFinishedMsg:
		m.FinishRun(msg.State)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.Finished() && m.cancel != nil {
			// First quit cancels the run; the final state lands as a
			// RunFinishedMsg and a second quit closes the screen.
			m.cancel()
			m.AddLogMessage("WARN", "Cancelling, already-issued unfollows stay done")
			return m, nil
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
