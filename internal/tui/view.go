// ABOUTME: View rendering for the TUI (converts model state to terminal output)
// ABOUTME: Layers full-screen takeovers and toast overlays onto the workspace
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	// Full-screen takeovers replace the workspace entirely
	if m.approval.Active() {
		return m.approval.View()
	}
	if m.helpOverlay.IsVisible() {
		return m.helpOverlay.View()
	}

	screen := lipgloss.JoinVertical(
		lipgloss.Top,
		m.renderWorkspace(),
		m.statusBar.View(),
	)
	return m.overlayNotices(screen)
}

// renderWorkspace stacks the chat view over the input area and, when the
// sidebar is shown, puts the thread list beside that column.
func (m Model) renderWorkspace() string {
	conversation := lipgloss.JoinVertical(
		lipgloss.Top,
		m.chatView.View(),
		m.inputArea.View(),
	)
	if !m.sidebarVisible {
		return conversation
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.threadList.View(), conversation)
}

// overlayNotices floats active toasts over the top-right corner of base.
func (m Model) overlayNotices(base string) string {
	toasts := m.notices.View()
	if toasts == "" {
		return base
	}
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Right,
		lipgloss.Top,
		toasts,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.NoColor{}),
	) + "\n" + base
}
