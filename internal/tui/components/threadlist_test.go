// ABOUTME: Unit tests for thread list component (thread index display)
// ABOUTME: Tests rendering, navigation wrapping, and selection
package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harper/agentwire/internal/appserver"
	"github.com/harper/agentwire/internal/tui/theme"
)

func testThreads() []appserver.ThreadSummary {
	return []appserver.ThreadSummary{
		{ID: "th-1", Title: "Fix the flaky test"},
		{ID: "th-2", Title: "Refactor config"},
		{ID: "th-3"},
	}
}

func TestNewThreadList(t *testing.T) {
	tl := NewThreadList(30, 20, theme.DefaultTheme)

	assert.NotNil(t, tl)
	assert.Equal(t, 30, tl.width)
	assert.Equal(t, 20, tl.height)
	assert.Equal(t, 0, tl.cursor)
}

func TestThreadList_SetThreadsClampsCursor(t *testing.T) {
	tl := NewThreadList(30, 20, theme.DefaultTheme)
	tl.SetThreads(testThreads())
	tl.SetCursor(2)

	// Shrinking the list pulls the cursor back in range.
	tl.SetThreads(testThreads()[:1])
	assert.Equal(t, 0, tl.cursor)

	tl.SetThreads(nil)
	assert.Equal(t, 0, tl.cursor)
	assert.Nil(t, tl.Selected())
}

func TestThreadList_NavigationWraps(t *testing.T) {
	tl := NewThreadList(30, 20, theme.DefaultTheme)
	tl.SetThreads(testThreads())

	tl.CursorDown()
	assert.Equal(t, "th-2", tl.Selected().ID)

	tl.CursorDown()
	tl.CursorDown()
	assert.Equal(t, "th-1", tl.Selected().ID, "down past the end wraps to top")

	tl.CursorUp()
	assert.Equal(t, "th-3", tl.Selected().ID, "up past the top wraps to bottom")
}

func TestThreadList_NavigationOnEmptyList(t *testing.T) {
	tl := NewThreadList(30, 20, theme.DefaultTheme)

	tl.CursorDown()
	tl.CursorUp()

	assert.Equal(t, 0, tl.cursor)
	assert.Nil(t, tl.Selected())
}

func TestThreadList_ViewShowsTitlesAndFallsBackToID(t *testing.T) {
	tl := NewThreadList(40, 20, theme.DefaultTheme)
	tl.SetThreads(testThreads())

	view := tl.View()

	assert.Contains(t, view, "THREADS")
	assert.Contains(t, view, "Fix the flaky test")
	assert.Contains(t, view, "th-3", "untitled threads show their id")
}

func TestThreadList_ViewMarksActiveTurns(t *testing.T) {
	tl := NewThreadList(40, 20, theme.DefaultTheme)
	tl.SetThreads(testThreads())
	tl.SetActiveTurns(map[string]bool{"th-2": true})

	view := tl.View()

	assert.Contains(t, view, "▶ Refactor config")
	assert.Contains(t, view, "• Fix the flaky test")
}

func TestThreadList_EmptyState(t *testing.T) {
	tl := NewThreadList(30, 20, theme.DefaultTheme)

	view := tl.View()

	assert.Contains(t, view, "No threads")
	assert.Contains(t, view, "Press 'n' to start one")
}

func TestThreadList_TruncatesLongTitles(t *testing.T) {
	tl := NewThreadList(20, 20, theme.DefaultTheme)
	tl.SetThreads([]appserver.ThreadSummary{
		{ID: "th-long", Title: "An exceedingly verbose thread title that cannot fit"},
	})

	view := tl.View()

	assert.Contains(t, view, "...")
	assert.NotContains(t, view, "cannot fit")
}

func TestThreadList_SetSize(t *testing.T) {
	tl := NewThreadList(30, 20, theme.DefaultTheme)
	tl.SetSize(45, 33)

	assert.Equal(t, 45, tl.width)
	assert.Equal(t, 33, tl.height)
}
