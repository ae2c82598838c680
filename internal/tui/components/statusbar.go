// ABOUTME: StatusBar component for displaying connection state and server diagnostics
// ABOUTME: Shows colored state indicators, active thread, ping latency, and keyboard shortcuts
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harper/agentwire/internal/tui/theme"
)

type StatusBar struct {
	width         int
	theme         theme.Theme
	state         string
	activeThread  string
	serverModel   string
	serverVersion string
	pingMs        int64
	turnActive    bool
}

func NewStatusBar(width int, t theme.Theme) *StatusBar {
	return &StatusBar{
		width: width,
		theme: t,
		state: "disconnected",
	}
}

func (s *StatusBar) SetConnectionState(state string) {
	s.state = state
}

func (s *StatusBar) SetActiveThread(threadID string) {
	s.activeThread = threadID
}

// SetServerInfo records what the handshake and pings learned about the peer.
func (s *StatusBar) SetServerInfo(model, version string, pingMs int64) {
	s.serverModel = model
	s.serverVersion = version
	s.pingMs = pingMs
}

func (s *StatusBar) SetTurnActive(active bool) {
	s.turnActive = active
}

func (s *StatusBar) SetSize(width int) {
	s.width = width
}

func (s *StatusBar) View() string {
	var statusIcon, statusText string
	switch s.state {
	case "connected":
		statusIcon = "🟢"
		statusText = "Connected"
	case "connecting":
		statusIcon = "🟡"
		statusText = "Connecting"
	default:
		statusIcon = "🔴"
		statusText = "Disconnected"
	}

	parts := []string{fmt.Sprintf("[%s %s]", statusIcon, statusText)}

	if s.activeThread != "" {
		short := s.activeThread
		if len(short) > 12 {
			short = short[:12]
		}
		parts = append(parts, "Thread: "+short)
	} else {
		parts = append(parts, "No thread")
	}

	if s.serverModel != "" || s.serverVersion != "" {
		server := strings.TrimSpace(s.serverModel + " " + s.serverVersion)
		if s.pingMs > 0 {
			server = fmt.Sprintf("%s %dms", server, s.pingMs)
		}
		parts = append(parts, server)
	}

	if s.turnActive {
		parts = append(parts, "⏳ turn running")
	}

	leftContent := strings.Join(parts, "  ")
	shortcuts := "Tab: Focus, ?: Help, q: Quit"

	// Right-align the shortcuts; lipgloss.Width ignores ANSI sequences.
	padding := s.width - lipgloss.Width(leftContent) - lipgloss.Width(shortcuts) - 7
	if padding < 1 {
		padding = 1
	}

	fullContent := fmt.Sprintf("%s%s| %s", leftContent, strings.Repeat(" ", padding), shortcuts)

	return s.theme.StatusBarStyle().
		Width(s.width - 2).
		Render(fullContent)
}
