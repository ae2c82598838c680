// ABOUTME: ThreadList component for displaying the server's thread index
// ABOUTME: Handles cursor navigation, selection, and active-turn markers
package components

import (
	"fmt"
	"strings"

	"github.com/harper/agentwire/internal/appserver"
	"github.com/harper/agentwire/internal/tui/theme"
)

type ThreadList struct {
	width       int
	height      int
	theme       theme.Theme
	threads     []appserver.ThreadSummary
	activeTurns map[string]bool
	cursor      int
}

func NewThreadList(width, height int, t theme.Theme) *ThreadList {
	return &ThreadList{
		width:  width,
		height: height,
		theme:  t,
		cursor: 0,
	}
}

func (tl *ThreadList) SetThreads(threads []appserver.ThreadSummary) {
	tl.threads = threads

	// Clamp cursor to valid range
	if tl.cursor >= len(threads) {
		tl.cursor = len(threads) - 1
	}
	if tl.cursor < 0 {
		tl.cursor = 0
	}
}

// SetActiveTurns marks which threads currently have a running turn.
func (tl *ThreadList) SetActiveTurns(threadIDs map[string]bool) {
	tl.activeTurns = threadIDs
}

func (tl *ThreadList) CursorDown() {
	if len(tl.threads) == 0 {
		return
	}

	tl.cursor++
	if tl.cursor >= len(tl.threads) {
		tl.cursor = 0 // Wrap to top
	}
}

func (tl *ThreadList) CursorUp() {
	if len(tl.threads) == 0 {
		return
	}

	tl.cursor--
	if tl.cursor < 0 {
		tl.cursor = len(tl.threads) - 1 // Wrap to bottom
	}
}

func (tl *ThreadList) Selected() *appserver.ThreadSummary {
	if len(tl.threads) == 0 || tl.cursor < 0 || tl.cursor >= len(tl.threads) {
		return nil
	}
	return &tl.threads[tl.cursor]
}

func (tl *ThreadList) SetCursor(index int) {
	if index >= 0 && index < len(tl.threads) {
		tl.cursor = index
	}
}

// label picks the display text for one thread row.
func (tl *ThreadList) label(t appserver.ThreadSummary) string {
	if t.Title != "" {
		return t.Title
	}
	return t.ID
}

func (tl *ThreadList) View() string {
	if len(tl.threads) == 0 {
		emptyMsg := tl.theme.DimStyle().Render("No threads\n\nPress 'n' to start one")
		return tl.theme.SidebarStyle().
			Width(tl.width - 2).
			Height(tl.height - 2).
			Render(emptyMsg)
	}

	var items []string

	title := tl.theme.ActiveThreadStyle().
		Width(tl.width - 4).
		Render("THREADS")
	items = append(items, title, "")

	for i, th := range tl.threads {
		marker := "•"
		if tl.activeTurns[th.ID] {
			marker = "▶"
		}

		name := tl.label(th)
		maxLen := tl.width - 8 // Account for padding and marker
		if len(name) > maxLen && maxLen > 3 {
			name = name[:maxLen-3] + "..."
		}

		line := fmt.Sprintf("%s %s", marker, name)

		if i == tl.cursor {
			line = tl.theme.ActiveThreadStyle().
				Width(tl.width - 4).
				Render(line)
		} else {
			line = tl.theme.InactiveThreadStyle().
				Width(tl.width - 4).
				Render(line)
		}

		items = append(items, line)
	}

	help := tl.theme.DimStyle().Render("\n↑↓: Navigate\nenter: Open\nn: New\nd: Archive\nr: Refresh")
	items = append(items, "", help)

	content := strings.Join(items, "\n")

	return tl.theme.SidebarStyle().
		Width(tl.width - 2).
		Height(tl.height - 2).
		Render(content)
}

func (tl *ThreadList) SetSize(width, height int) {
	tl.width = width
	tl.height = height
}
