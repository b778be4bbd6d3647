package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TargetState represents the state of one unfollow target
type TargetState int

const (
	TargetPending TargetState = iota
	TargetActive
	TargetSucceeded
	TargetFailed
	TargetSkipped
)

// TargetItem represents one account queued for unfollowing
type TargetItem struct {
	ID       string
	Username string
	State    TargetState
	Error    error
}

// Model represents the TUI model for an unfollow run
type Model struct {
	// UI components
	spinner spinner.Model
	bar     progress.Model

	// Run state
	targets   []*TargetItem
	byID      map[string]int
	active    int
	succeeded int
	failed    int
	skipped   int
	runState  string
	startTime time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	// cancel stops the underlying run when the user quits mid-flight
	cancel func()

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a TUI model seeded with the full target list
func NewModel(targets []TargetItem, cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	m := Model{
		spinner:        s,
		bar:            bar,
		byID:           make(map[string]int, len(targets)),
		active:         -1,
		runState:       "running",
		startTime:      time.Now(),
		logMessages:    []LogMessage{},
		maxLogMessages: 50,
		cancel:         cancel,
	}
	for i := range targets {
		item := targets[i]
		m.targets = append(m.targets, &item)
		m.byID[item.ID] = i
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// StartTarget marks a target as the one currently being unfollowed
func (m *Model) StartTarget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.byID[id]; ok {
		m.targets[i].State = TargetActive
		m.active = i
	}
}

// FinishTarget records a target's outcome
func (m *Model) FinishTarget(id string, state TargetState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.byID[id]
	if !ok {
		return
	}
	m.targets[i].State = state
	m.targets[i].Error = err
	if m.active == i {
		m.active = -1
	}

	switch state {
	case TargetSucceeded:
		m.succeeded++
	case TargetFailed:
		m.failed++
	case TargetSkipped:
		m.skipped++
	}
}

// FinishRun records the final run state
func (m *Model) FinishRun(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runState = state
	m.active = -1
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = hardRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Finished reports whether the run has reached a final state
func (m *Model) Finished() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runState != "running"
}

// Progress returns resolved targets, total, and the completion ratio
func (m *Model) Progress() (done, total int, ratio float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	done = m.succeeded + m.failed + m.skipped
	total = len(m.targets)
	if total > 0 {
		ratio = float64(done) / float64(total)
	}
	return
}

// ActiveTarget returns the target currently being unfollowed, or nil
func (m *Model) ActiveTarget() *TargetItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active < 0 || m.active >= len(m.targets) {
		return nil
	}
	return m.targets[m.active]
}

// Counts returns the per-outcome tallies
func (m *Model) Counts() (succeeded, failed, skipped int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.succeeded, m.failed, m.skipped
}
