package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
 ██╗ ██████╗ ██╗   ██╗███╗   ██╗███████╗ ██████╗ ██╗
 ██║██╔════╝ ██║   ██║████╗  ██║██╔════╝██╔═══██╗██║
 ██║██║  ███╗██║   ██║██╔██╗ ██║█████╗  ██║   ██║██║
 ██║██║   ██║██║   ██║██║╚██╗██║██╔══╝  ██║   ██║██║
 ██║╚██████╔╝╚██████╔╝██║ ╚████║██║     ╚██████╔╝███████╗
 ╚═╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═══╝╚═╝      ╚═════╝ ╚══════╝`

// View renders the TUI
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(logoStyle.Render(logo))
	b.WriteString("\n\n")

	b.WriteString(m.renderProgress())
	b.WriteString("\n")
	b.WriteString(m.renderQueue())
	b.WriteString("\n")
	b.WriteString(m.renderLogs())

	if m.showHelp {
		b.WriteString(helpStyle.Render("q quit/cancel • ? toggle help • ctrl+l clear logs"))
	} else {
		b.WriteString(helpStyle.Render("? for help"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *Model) renderProgress() string {
	done, total, ratio := m.Progress()
	succeeded, failed, skipped := m.Counts()

	var b strings.Builder
	b.WriteString(titleStyle.Render(" UNFOLLOW RUN "))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(ratio))
	b.WriteString(fmt.Sprintf("  %s\n\n", statsValueStyle.Render(fmt.Sprintf("%d/%d", done, total))))

	stats := []string{
		statsLabelStyle.Render("unfollowed ") + succeededStyle.Render(fmt.Sprintf("%d", succeeded)),
		statsLabelStyle.Render("failed ") + failedStyle.Render(fmt.Sprintf("%d", failed)),
		statsLabelStyle.Render("skipped ") + skippedStyle.Render(fmt.Sprintf("%d", skipped)),
		statsLabelStyle.Render("elapsed ") + statsValueStyle.Render(time.Since(m.startTime).Round(time.Second).String()),
	}
	b.WriteString(strings.Join(stats, "   "))
	b.WriteString("\n\n")

	m.mu.RLock()
	state := m.runState
	m.mu.RUnlock()

	switch state {
	case "running":
		if active := m.ActiveTarget(); active != nil {
			b.WriteString(m.spinner.View())
			b.WriteString(activeStyle.Render(" unfollowing @" + active.Username))
		} else {
			b.WriteString(m.spinner.View())
			b.WriteString(pendingStyle.Render(" pausing before the next account"))
		}
	case "completed":
		b.WriteString(completedBannerStyle.Render("✓ run complete"))
	case "cancelled":
		b.WriteString(cancelledBannerStyle.Render("✗ run cancelled"))
	case "aborted":
		b.WriteString(abortedBannerStyle.Render("⚠ run aborted, Instagram pushed back"))
	}
	b.WriteString("\n")

	return panelStyle.Render(b.String()) + "\n"
}

// renderQueue shows a window of targets around the one in flight
func (m *Model) renderQueue() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	const window = 8
	start := 0
	if m.active > window/2 {
		start = m.active - window/2
	}
	end := start + window
	if end > len(m.targets) {
		end = len(m.targets)
		if end-window > 0 {
			start = end - window
		} else {
			start = 0
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" QUEUE "))
	b.WriteString("\n\n")
	if start > 0 {
		b.WriteString(pendingStyle.Render(fmt.Sprintf("  … %d earlier\n", start)))
	}
	for _, item := range m.targets[start:end] {
		b.WriteString(renderTargetLine(item))
		b.WriteString("\n")
	}
	if rest := len(m.targets) - end; rest > 0 {
		b.WriteString(pendingStyle.Render(fmt.Sprintf("  … %d more\n", rest)))
	}

	return panelStyle.Render(b.String()) + "\n"
}

func renderTargetLine(item *TargetItem) string {
	name := "@" + item.Username
	switch item.State {
	case TargetActive:
		return activeStyle.Render("  ▶ " + name)
	case TargetSucceeded:
		return succeededStyle.Render("  ✓ " + name)
	case TargetFailed:
		line := "  ✗ " + name
		if item.Error != nil {
			line += "  " + item.Error.Error()
		}
		return failedStyle.Render(line)
	case TargetSkipped:
		return skippedStyle.Render("  ○ " + name)
	default:
		return pendingStyle.Render("  · " + name)
	}
}

func (m *Model) renderLogs() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	const visible = 5
	start := 0
	if len(m.logMessages) > visible {
		start = len(m.logMessages) - visible
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" LOG "))
	b.WriteString("\n\n")
	if len(m.logMessages) == 0 {
		b.WriteString(pendingStyle.Render("  nothing yet\n"))
	}
	for _, msg := range m.logMessages[start:] {
		b.WriteString("  ")
		b.WriteString(logTimestampStyle.Render(msg.Time.Format("15:04:05")))
		b.WriteString(" ")
		b.WriteString(lipgloss.NewStyle().Foreground(msg.Color).Render(msg.Level))
		b.WriteString(" ")
		b.WriteString(logMessageStyle.Render(msg.Message))
		b.WriteString("\n")
	}

	return panelStyle.Render(b.String()) + "\n"
}
