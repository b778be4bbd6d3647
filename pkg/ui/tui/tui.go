package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"igunfollow/pkg/account"
	"igunfollow/pkg/unfollow"
)

// TUI represents the terminal user interface for an unfollow run
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a TUI seeded with the targets of a run. cancel is invoked
// when the user quits while the run is still going.
func NewTUI(targets []account.Identity, cancel func()) *TUI {
	items := make([]TargetItem, len(targets))
	for i, target := range targets {
		items[i] = TargetItem{ID: target.ID, Username: target.Username}
	}

	model := NewModel(items, cancel)
	program := tea.NewProgram(&model, tea.WithAltScreen())

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the TUI until the user quits
func (t *TUI) Start() error {
	go func() {
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Follow consumes a run's result stream and mirrors it into the TUI. It
// returns when the stream closes, leaving the final state on screen.
func (t *TUI) Follow(run *unfollow.Run, targets []account.Identity) {
	if len(targets) > 0 {
		t.Send(TargetStartMsg{ID: targets[0].ID})
	}

	for res := range run.Results() {
		t.Send(TargetResultMsg{
			ID:    res.Target.ID,
			State: targetState(res.Status),
			Error: res.Err,
		})
		switch res.Status {
		case unfollow.StatusSucceeded:
			t.LogSuccess("unfollowed @%s", res.Target.Username)
		case unfollow.StatusSkipped:
			t.LogWarning("skipped @%s", res.Target.Username)
		case unfollow.StatusFailed:
			t.LogError("failed @%s: %v", res.Target.Username, res.Err)
		}
		if next := res.Index + 1; next < len(targets) {
			t.Send(TargetStartMsg{ID: targets[next].ID})
		}
	}

	summary := run.Wait()
	t.Send(RunFinishedMsg{State: string(summary.State)})
}

// targetState maps a run outcome to its display state
func targetState(status unfollow.TaskStatus) TargetState {
	switch status {
	case unfollow.StatusSucceeded:
		return TargetSucceeded
	case unfollow.StatusSkipped:
		return TargetSkipped
	case unfollow.StatusFailed:
		return TargetFailed
	default:
		return TargetPending
	}
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	t.Send(LogMsg{Level: level, Message: message})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogSuccess logs a success message
func (t *TUI) LogSuccess(format string, args ...interface{}) {
	t.Log("SUCCESS", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
