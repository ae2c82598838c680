// ABOUTME: ApprovalPrompt modal for resolving pending server requests
// ABOUTME: Renders command/file-change approvals and user-input questions with key handling
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harper/agentwire/internal/appserver"
	"github.com/harper/agentwire/internal/tui/theme"
)

const (
	approvalModalWidth = 60
	commandDisplayMax  = 120
)

// Resolution describes how the operator resolved an approval prompt.
// Either Decision is set (approvals), Answers is set (user input), or
// Dismiss is true (unsupported request kinds).
type Resolution struct {
	RequestID string
	Decision  appserver.ApprovalDecision
	Answers   map[string]string
	Dismiss   bool
}

// ApprovalPrompt is a modal that surfaces one pending server request at a
// time. Escape closes the modal without resolving; the request stays
// queued in the engine and can be reopened.
type ApprovalPrompt struct {
	width  int
	height int
	theme  theme.Theme

	request *appserver.PendingServerRequest

	// User-input progress.
	questionIdx int
	optionIdx   int
	freeText    string
	answers     map[string]string
}

// NewApprovalPrompt creates an inactive approval prompt.
func NewApprovalPrompt(width, height int, th theme.Theme) *ApprovalPrompt {
	return &ApprovalPrompt{
		width:  width,
		height: height,
		theme:  th,
	}
}

// SetRequest opens the modal for the given request, resetting any
// in-progress answer state.
func (ap *ApprovalPrompt) SetRequest(req *appserver.PendingServerRequest) {
	ap.request = req
	ap.questionIdx = 0
	ap.optionIdx = 0
	ap.freeText = ""
	ap.answers = make(map[string]string)
}

// Request returns the request currently shown, or nil.
func (ap *ApprovalPrompt) Request() *appserver.PendingServerRequest {
	return ap.request
}

// Active reports whether the modal is showing a request.
func (ap *ApprovalPrompt) Active() bool {
	return ap.request != nil
}

// Clear closes the modal without resolving the request.
func (ap *ApprovalPrompt) Clear() {
	ap.request = nil
}

// SetSize updates the modal dimensions.
func (ap *ApprovalPrompt) SetSize(width, height int) {
	ap.width = width
	ap.height = height
}

// HandleKey processes one keystroke while the modal is active. It returns
// the resolution and true once the operator has decided; otherwise the
// keystroke is consumed without resolving. Escape clears the modal and
// leaves the request pending.
func (ap *ApprovalPrompt) HandleKey(key string) (Resolution, bool) {
	if ap.request == nil {
		return Resolution{}, false
	}

	if key == "esc" && ap.request.Kind != appserver.ServerRequestUnknown {
		ap.Clear()
		return Resolution{}, false
	}

	switch ap.request.Kind {
	case appserver.ServerRequestCommandApproval, appserver.ServerRequestFileChangeApproval:
		return ap.handleApprovalKey(key)
	case appserver.ServerRequestUserInput:
		return ap.handleUserInputKey(key)
	default:
		// Unsupported request kinds can only be dismissed.
		if key == "esc" || key == "enter" || key == "d" {
			res := Resolution{RequestID: ap.request.ID, Dismiss: true}
			ap.Clear()
			return res, true
		}
		return Resolution{}, false
	}
}

func (ap *ApprovalPrompt) handleApprovalKey(key string) (Resolution, bool) {
	var decision appserver.ApprovalDecision

	switch key {
	case "y":
		decision = appserver.DecisionAccept
	case "a":
		decision = appserver.DecisionAcceptForSession
	case "n", "d":
		decision = appserver.DecisionDecline
	case "c":
		decision = appserver.DecisionCancel
	default:
		return Resolution{}, false
	}

	res := Resolution{RequestID: ap.request.ID, Decision: decision}
	ap.Clear()
	return res, true
}

func (ap *ApprovalPrompt) handleUserInputKey(key string) (Resolution, bool) {
	questions := ap.request.Questions
	if ap.questionIdx >= len(questions) {
		// A request with no questions still needs an answer envelope.
		res := Resolution{RequestID: ap.request.ID, Answers: ap.answers}
		ap.Clear()
		return res, true
	}

	q := questions[ap.questionIdx]

	if len(q.Options) > 0 {
		switch key {
		case "up", "k":
			ap.optionIdx--
			if ap.optionIdx < 0 {
				ap.optionIdx = len(q.Options) - 1
			}
			return Resolution{}, false
		case "down", "j":
			ap.optionIdx = (ap.optionIdx + 1) % len(q.Options)
			return Resolution{}, false
		case "enter":
			return ap.recordAnswer(q.ID, q.Options[ap.optionIdx])
		default:
			return Resolution{}, false
		}
	}

	// Free-text question.
	switch key {
	case "enter":
		return ap.recordAnswer(q.ID, ap.freeText)
	case "backspace":
		if len(ap.freeText) > 0 {
			runes := []rune(ap.freeText)
			ap.freeText = string(runes[:len(runes)-1])
		}
		return Resolution{}, false
	default:
		if runes := []rune(key); len(runes) == 1 {
			ap.freeText += key
		}
		return Resolution{}, false
	}
}

func (ap *ApprovalPrompt) recordAnswer(questionID, answer string) (Resolution, bool) {
	ap.answers[questionID] = answer
	ap.questionIdx++
	ap.optionIdx = 0
	ap.freeText = ""

	if ap.questionIdx < len(ap.request.Questions) {
		return Resolution{}, false
	}

	res := Resolution{RequestID: ap.request.ID, Answers: ap.answers}
	ap.Clear()
	return res, true
}

// View renders the modal centered on screen, or an empty string when
// inactive.
func (ap *ApprovalPrompt) View() string {
	if ap.request == nil {
		return ""
	}

	var content string
	switch ap.request.Kind {
	case appserver.ServerRequestCommandApproval:
		content = ap.renderCommandApproval()
	case appserver.ServerRequestFileChangeApproval:
		content = ap.renderFileChangeApproval()
	case appserver.ServerRequestUserInput:
		content = ap.renderUserInput()
	default:
		content = ap.renderUnknown()
	}

	modalWidth := approvalModalWidth
	if modalWidth > ap.width-4 {
		modalWidth = ap.width - 4
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ap.theme.Warning).
		Background(ap.theme.Background).
		Padding(1, 2).
		Width(modalWidth)

	return ap.center(boxStyle.Render(content))
}

func (ap *ApprovalPrompt) renderCommandApproval() string {
	var sb strings.Builder

	sb.WriteString("🔐 ")
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ap.theme.Warning)
	sb.WriteString(titleStyle.Render("Command Approval"))
	sb.WriteString("\n\n")

	cmdStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ap.theme.Primary)
	command := ap.request.Command
	if len(command) > commandDisplayMax {
		command = command[:commandDisplayMax] + "..."
	}
	sb.WriteString("Command: ")
	sb.WriteString(cmdStyle.Render(command))
	sb.WriteString("\n")

	dimStyle := lipgloss.NewStyle().Foreground(ap.theme.Dim)
	if ap.request.Cwd != "" {
		sb.WriteString("Dir: ")
		sb.WriteString(dimStyle.Render(ap.request.Cwd))
		sb.WriteString("\n")
	}
	if ap.request.Reason != "" {
		sb.WriteString("Reason: ")
		sb.WriteString(dimStyle.Render(ap.request.Reason))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(ap.approvalHints())
	return sb.String()
}

func (ap *ApprovalPrompt) renderFileChangeApproval() string {
	var sb strings.Builder

	sb.WriteString("🔐 ")
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ap.theme.Warning)
	sb.WriteString(titleStyle.Render("File Change Approval"))
	sb.WriteString("\n\n")

	dimStyle := lipgloss.NewStyle().Foreground(ap.theme.Dim)
	if ap.request.ItemID != "" {
		sb.WriteString("Item: ")
		sb.WriteString(dimStyle.Render(ap.request.ItemID))
		sb.WriteString("\n")
	}
	if ap.request.Reason != "" {
		sb.WriteString("Reason: ")
		sb.WriteString(dimStyle.Render(ap.request.Reason))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(ap.approvalHints())
	return sb.String()
}

func (ap *ApprovalPrompt) renderUserInput() string {
	var sb strings.Builder

	sb.WriteString("❔ ")
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ap.theme.Warning)
	sb.WriteString(titleStyle.Render("Input Requested"))
	sb.WriteString("\n\n")

	questions := ap.request.Questions
	if ap.questionIdx >= len(questions) {
		sb.WriteString("Press enter to submit.")
		return sb.String()
	}

	q := questions[ap.questionIdx]

	if len(questions) > 1 {
		progressStyle := lipgloss.NewStyle().Foreground(ap.theme.Dim)
		sb.WriteString(progressStyle.Render(
			fmt.Sprintf("Question %d of %d", ap.questionIdx+1, len(questions))))
		sb.WriteString("\n")
	}

	promptStyle := lipgloss.NewStyle().Bold(true).Foreground(ap.theme.Foreground)
	sb.WriteString(promptStyle.Render(q.Prompt))
	sb.WriteString("\n\n")

	if len(q.Options) > 0 {
		selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(ap.theme.Primary)
		for i, opt := range q.Options {
			if i == ap.optionIdx {
				sb.WriteString(selectedStyle.Render("▶ " + opt))
			} else {
				sb.WriteString("  " + opt)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		hintStyle := lipgloss.NewStyle().Foreground(ap.theme.Dim)
		sb.WriteString(hintStyle.Render("↑/↓ choose · enter submit · esc later"))
		return sb.String()
	}

	sb.WriteString("> ")
	sb.WriteString(ap.freeText)
	sb.WriteString("▊")
	sb.WriteString("\n\n")
	hintStyle := lipgloss.NewStyle().Foreground(ap.theme.Dim)
	sb.WriteString(hintStyle.Render("type answer · enter submit · esc later"))
	return sb.String()
}

func (ap *ApprovalPrompt) renderUnknown() string {
	var sb strings.Builder

	sb.WriteString("🔐 ")
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ap.theme.Warning)
	sb.WriteString(titleStyle.Render("Unsupported Request"))
	sb.WriteString("\n\n")

	dimStyle := lipgloss.NewStyle().Foreground(ap.theme.Dim)
	sb.WriteString("Method: ")
	sb.WriteString(dimStyle.Render(ap.request.Method))
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("esc dismiss"))
	return sb.String()
}

func (ap *ApprovalPrompt) approvalHints() string {
	hintStyle := lipgloss.NewStyle().Foreground(ap.theme.Dim)
	return hintStyle.Render("y allow · a allow for session · n deny · c cancel · esc later")
}

func (ap *ApprovalPrompt) center(modal string) string {
	modalLines := strings.Split(modal, "\n")
	modalHeight := len(modalLines)

	verticalPadding := (ap.height - modalHeight) / 2
	if verticalPadding < 0 {
		verticalPadding = 0
	}

	var result strings.Builder
	for i := 0; i < verticalPadding; i++ {
		result.WriteString("\n")
	}

	for _, line := range modalLines {
		horizontalPadding := (ap.width - lipgloss.Width(line)) / 2
		if horizontalPadding < 0 {
			horizontalPadding = 0
		}
		result.WriteString(strings.Repeat(" ", horizontalPadding))
		result.WriteString(line)
		result.WriteString("\n")
	}

	return result.String()
}
