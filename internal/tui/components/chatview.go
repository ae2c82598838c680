// ABOUTME: ChatView component for displaying a thread's conversation with scrolling
// ABOUTME: Uses bubbles viewport, formats entries with icons, and streams agent output live
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harper/agentwire/internal/tui/theme"
)

// EntryKind classifies a conversation entry for formatting.
type EntryKind int

const (
	EntryUser EntryKind = iota
	EntryAgent
	EntrySystem
	EntryError
	EntryApproval
)

// Icon returns the glyph shown next to entries of this kind.
func (k EntryKind) Icon() string {
	switch k {
	case EntryUser:
		return "👤"
	case EntryAgent:
		return "🤖"
	case EntryError:
		return "⚠️"
	case EntryApproval:
		return "🔐"
	default:
		return "ℹ️"
	}
}

// Entry is one rendered line group in the conversation. Detail carries
// kind-specific extras: the decision for approvals, nothing for the rest.
type Entry struct {
	Kind      EntryKind
	Text      string
	Detail    string
	Timestamp time.Time
}

type ChatView struct {
	width    int
	height   int
	theme    theme.Theme
	viewport viewport.Model
	entries  []Entry

	// Live agent output for the current turn. Materialized into an
	// EntryAgent when the stream ends.
	streaming  bool
	streamText string
}

func NewChatView(width, height int, t theme.Theme) *ChatView {
	vp := viewport.New(width, height)
	vp.Style = t.ChatViewStyle()

	return &ChatView{
		width:    width,
		height:   height,
		theme:    t,
		viewport: vp,
		entries:  []Entry{},
	}
}

func (cv *ChatView) SetEntries(entries []Entry) {
	cv.entries = entries
	cv.updateViewport()
}

func (cv *ChatView) AddEntry(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	cv.entries = append(cv.entries, e)
	cv.updateViewport()
	cv.viewport.GotoBottom()
}

func (cv *ChatView) Entries() []Entry {
	return cv.entries
}

// StartStream begins showing live agent output with a cursor.
func (cv *ChatView) StartStream() {
	cv.streaming = true
	cv.streamText = ""
	cv.updateViewport()
	cv.viewport.GotoBottom()
}

// AppendStream adds a delta to the live agent output.
func (cv *ChatView) AppendStream(delta string) {
	cv.streamText += delta
	cv.updateViewport()
	cv.viewport.GotoBottom()
}

// SetStream replaces the live agent output wholesale, for transcript
// rebuilds that arrive mid-turn.
func (cv *ChatView) SetStream(text string) {
	cv.streamText = text
	cv.updateViewport()
	cv.viewport.GotoBottom()
}

// EndStream stops streaming and materializes the accumulated output as an
// agent entry. Empty streams add nothing.
func (cv *ChatView) EndStream() {
	text := cv.streamText
	cv.streaming = false
	cv.streamText = ""

	if text != "" {
		cv.AddEntry(Entry{Kind: EntryAgent, Text: text, Timestamp: time.Now()})
		return
	}
	cv.updateViewport()
}

func (cv *ChatView) Streaming() bool {
	return cv.streaming
}

func (cv *ChatView) formatEntry(e Entry) string {
	var sb strings.Builder

	timestamp := cv.theme.DimStyle().Render(e.Timestamp.Format("[15:04:05]"))
	sb.WriteString(fmt.Sprintf("%s %s", e.Kind.Icon(), timestamp))
	sb.WriteString("\n")

	switch e.Kind {
	case EntryUser:
		sb.WriteString(cv.theme.ChatViewStyle().UnsetPadding().Foreground(cv.theme.UserMsg).Render(e.Text))
	case EntryAgent:
		sb.WriteString(cv.theme.ChatViewStyle().UnsetPadding().Foreground(cv.theme.AgentMsg).Render(e.Text))
	case EntryError:
		sb.WriteString(cv.theme.ErrorStyle().Render(e.Text))
	case EntryApproval:
		sb.WriteString(cv.formatApproval(e))
	default:
		sb.WriteString(cv.theme.DimStyle().Render(e.Text))
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatApproval renders an answered approval with an outcome marker. Text
// holds what was approved, Detail the decision sent back.
func (cv *ChatView) formatApproval(e Entry) string {
	var icon string
	var style = cv.theme.DimStyle()
	var status string

	switch e.Detail {
	case "accept", "acceptForSession":
		icon = "✅"
		style = cv.theme.SuccessStyle()
		status = "Allowed"
	case "decline", "cancel":
		icon = "❌"
		style = cv.theme.ErrorStyle()
		status = "Denied"
	default:
		icon = "❓"
		status = "Unknown"
	}

	return fmt.Sprintf("%s %s: %s", icon, style.Render(status), e.Text)
}

func (cv *ChatView) updateViewport() {
	if len(cv.entries) == 0 && !cv.streaming {
		cv.viewport.SetContent(cv.theme.DimStyle().Render("No messages yet"))
		return
	}

	var sb strings.Builder
	for _, e := range cv.entries {
		sb.WriteString(cv.formatEntry(e))
		sb.WriteString("\n")
	}

	if cv.streaming {
		sb.WriteString(fmt.Sprintf("🤖 %s\n", cv.theme.DimStyle().Render("streaming")))
		text := cv.theme.ChatViewStyle().UnsetPadding().Foreground(cv.theme.AgentMsg).Render(cv.streamText)
		sb.WriteString(text)
		sb.WriteString("▊")
		sb.WriteString("\n")
	}

	cv.viewport.SetContent(sb.String())
}

func (cv *ChatView) View() string {
	if len(cv.entries) == 0 && !cv.streaming {
		return cv.theme.ChatViewStyle().
			Width(cv.width - 2).
			Height(cv.height - 2).
			Render(cv.theme.DimStyle().Render("No messages yet"))
	}

	return cv.viewport.View()
}

func (cv *ChatView) SetSize(width, height int) {
	cv.width = width
	cv.height = height
	cv.viewport.Width = width
	cv.viewport.Height = height
	cv.updateViewport()
}

func (cv *ChatView) Init() tea.Cmd {
	return nil
}

func (cv *ChatView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	cv.viewport, cmd = cv.viewport.Update(msg)
	return cv, cmd
}
