// ABOUTME: Core Bubbletea model and state management for the TUI
// ABOUTME: Implements the Model interface with Init, Update, and View methods
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/agentwire/internal/appserver"
	"github.com/harper/agentwire/internal/config"
	"github.com/harper/agentwire/internal/tui/components"
	"github.com/harper/agentwire/internal/tui/theme"
)

// FocusArea represents which component currently has focus
type FocusArea int

const (
	FocusThreadList FocusArea = iota
	FocusChatView
	FocusInputArea
)

type Model struct {
	config *config.Config
	theme  theme.Theme
	width  int
	height int

	// Components
	threadList  *components.ThreadList
	chatView    *components.ChatView
	inputArea   *components.InputArea
	statusBar   *components.StatusBar
	helpOverlay *components.HelpOverlay
	approval    *components.ApprovalPrompt
	notices     *components.NotificationComponent

	// Protocol engine
	client *appserver.Client

	// UI state
	focusedArea    FocusArea
	activeThreadID string
	sidebarVisible bool
}

func NewModel(cfg *config.Config, client *appserver.Client) Model {
	th := theme.GetTheme(cfg.UI.Theme)

	// Initialize components with default dimensions (will be resized on first WindowSizeMsg)
	threadList := components.NewThreadList(30, 24, th)
	chatView := components.NewChatView(80, 20, th)
	inputArea := components.NewInputArea(80, 4, th)
	statusBar := components.NewStatusBar(80, th)
	helpOverlay := components.NewHelpOverlay(80, 24, th)
	approval := components.NewApprovalPrompt(80, 24, th)
	notices := components.NewNotificationComponent(80, th)

	// Input stays disabled until a thread is open on a live connection
	inputArea.SetDisabled(true)

	return Model{
		config:         cfg,
		theme:          th,
		threadList:     threadList,
		chatView:       chatView,
		inputArea:      inputArea,
		statusBar:      statusBar,
		helpOverlay:    helpOverlay,
		approval:       approval,
		notices:        notices,
		client:         client,
		focusedArea:    FocusThreadList,
		activeThreadID: "",
		sidebarVisible: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.inputArea.Init(),
		m.connectCmd(),
		m.waitForEvent(),
	)
}
