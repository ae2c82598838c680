// ABOUTME: Update logic for the TUI (handles all messages and state transitions)
// ABOUTME: Implements the Elm architecture Update function
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/agentwire/internal/appserver"
	apperrors "github.com/harper/agentwire/internal/errors"
	"github.com/harper/agentwire/internal/tui/components"
)

// uiRequestTimeout bounds every engine call issued from the UI.
const uiRequestTimeout = 30 * time.Second

// EngineEventMsg wraps one event from the protocol engine's event channel.
type EngineEventMsg struct {
	Event appserver.Event
}

// ConnectResultMsg reports the outcome of the initial connect.
type ConnectResultMsg struct {
	Err error
}

// ThreadsLoadedMsg carries a refreshed thread index.
type ThreadsLoadedMsg struct {
	Threads []appserver.ThreadSummary
	Err     error
}

// ThreadStartedMsg reports a thread/start issued from the UI.
type ThreadStartedMsg struct {
	ThreadID string
	Err      error
}

// ThreadOpenedMsg reports a resume+read of an existing thread.
type ThreadOpenedMsg struct {
	ThreadID string
	Thread   *appserver.Thread
	Err      error
}

// ThreadArchivedMsg reports a thread/archive issued from the UI.
type ThreadArchivedMsg struct {
	ThreadID string
	Err      error
}

// TurnResultMsg reports a turn/start or turn/steer issued from the UI.
type TurnResultMsg struct {
	ThreadID string
	TurnID   string
	Steered  bool
	Err      error
}

// TurnInterruptedMsg reports a turn/interrupt issued from the UI.
type TurnInterruptedMsg struct {
	Err error
}

// ApprovalResolvedMsg reports the outcome of answering a server request.
type ApprovalResolvedMsg struct {
	RequestID string
	ThreadID  string
	Label     string
	Decision  appserver.ApprovalDecision
	Answered  bool
	Dismissed bool
	Err       error
}

//nolint:gocognit,gocyclo,funlen // central message dispatch is one big switch by design of the Elm architecture
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateComponentSizes()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EngineEventMsg:
		m, cmd = m.handleEngineEvent(msg.Event)
		// Re-arm the pump for the next event
		return m, tea.Batch(cmd, m.waitForEvent())

	case ConnectResultMsg:
		if msg.Err != nil {
			DebugLog("Update: ConnectResultMsg - connect failed: %v", msg.Err)
			return m, m.notify(apperrors.FormatUser(msg.Err), "error")
		}
		DebugLog("Update: ConnectResultMsg - connected")
		return m, nil

	case ThreadsLoadedMsg:
		if msg.Err != nil {
			DebugLog("Update: ThreadsLoadedMsg - %v", msg.Err)
			return m, m.notify(apperrors.FormatUser(msg.Err), "error")
		}
		DebugLog("Update: ThreadsLoadedMsg - %d threads", len(msg.Threads))
		m.threadList.SetThreads(msg.Threads)
		m.syncTurnIndicators()
		return m, nil

	case ThreadStartedMsg:
		if msg.Err != nil {
			DebugLog("Update: ThreadStartedMsg - %v", msg.Err)
			return m, m.notify(apperrors.FormatUser(msg.Err), "error")
		}
		DebugLog("Update: ThreadStartedMsg - thread %s", msg.ThreadID)
		m = m.activateThread(msg.ThreadID, nil)
		m.chatView.AddEntry(components.Entry{
			Kind: components.EntrySystem,
			Text: "Thread started",
		})
		return m, m.loadThreadsCmd()

	case ThreadOpenedMsg:
		if msg.Err != nil {
			DebugLog("Update: ThreadOpenedMsg - %v", msg.Err)
			return m, m.notify(apperrors.FormatUser(msg.Err), "error")
		}
		DebugLog("Update: ThreadOpenedMsg - thread %s (%d items)", msg.ThreadID, threadItemCount(msg.Thread))
		m = m.activateThread(msg.ThreadID, msg.Thread)
		return m, nil

	case ThreadArchivedMsg:
		if msg.Err != nil {
			DebugLog("Update: ThreadArchivedMsg - %v", msg.Err)
			return m, m.notify(apperrors.FormatUser(msg.Err), "error")
		}
		DebugLog("Update: ThreadArchivedMsg - thread %s", msg.ThreadID)
		if msg.ThreadID == m.activeThreadID {
			m = m.clearActiveThread()
		}
		return m, tea.Batch(m.notify("Thread archived", "success"), m.loadThreadsCmd())

	case TurnResultMsg:
		if msg.Err != nil {
			DebugLog("Update: TurnResultMsg - %v", msg.Err)
			if msg.ThreadID == m.activeThreadID {
				m.chatView.AddEntry(components.Entry{
					Kind: components.EntryError,
					Text: apperrors.FormatUser(msg.Err),
				})
			}
			return m, nil
		}
		if msg.Steered {
			DebugLog("Update: TurnResultMsg - steered active turn on %s", msg.ThreadID)
		} else {
			DebugLog("Update: TurnResultMsg - turn %s started on %s", msg.TurnID, msg.ThreadID)
		}
		return m, nil

	case TurnInterruptedMsg:
		if msg.Err != nil {
			DebugLog("Update: TurnInterruptedMsg - %v", msg.Err)
			return m, m.notify(apperrors.FormatUser(msg.Err), "error")
		}
		DebugLog("Update: TurnInterruptedMsg - interrupt sent")
		return m, m.notify("Turn interrupted", "info")

	case ApprovalResolvedMsg:
		return m.handleApprovalResolved(msg)

	case components.DismissNotificationMsg:
		m.notices.Update(msg)
		return m, nil
	}

	// Update components that need to receive all messages (like viewport scrolling)
	if m.focusedArea == FocusChatView {
		_, cmd = m.chatView.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.focusedArea == FocusInputArea {
		_, cmd = m.inputArea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey routes keystrokes by priority: approval modal, help overlay,
// global shortcuts, then the focused component.
//
//nolint:gocognit,gocyclo // key routing enumerates every binding in one place
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Ctrl+C always quits, even inside modals
	if key == "ctrl+c" {
		m.client.Disconnect()
		return m, tea.Quit
	}

	// Approval modal swallows everything while active
	if m.approval.Active() {
		req := m.approval.Request()
		if res, ok := m.approval.HandleKey(key); ok {
			return m, m.resolveApprovalCmd(req, res)
		}
		return m, nil
	}

	// Help overlay gets priority
	if m.helpOverlay.IsVisible() {
		if key == "?" || key == "esc" {
			m.helpOverlay.Toggle()
		}
		return m, nil
	}

	// Global shortcuts
	switch key {
	case "ctrl+b":
		m.sidebarVisible = !m.sidebarVisible
		m.updateComponentSizes()
		if m.focusedArea == FocusThreadList && !m.sidebarVisible {
			m.cycleFocus()
		}
		return m, nil

	case "tab":
		m.cycleFocus()
		return m, nil

	case "esc":
		if m.activeThreadID != "" {
			if _, ok := m.client.ActiveTurn(m.activeThreadID); ok {
				DebugLog("handleKey: Esc pressed, interrupting active turn on %s", m.activeThreadID)
				return m, m.interruptCmd()
			}
		}
		return m, nil
	}

	// Plain-letter shortcuts only apply outside the input area, where
	// letters are text
	if m.focusedArea != FocusInputArea {
		switch key {
		case "q":
			m.client.Disconnect()
			return m, tea.Quit

		case "?":
			m.helpOverlay.Toggle()
			return m, nil

		case "p":
			return m.openNextApproval()
		}
	}

	// Route to focused component
	return m.handleFocusedInput(msg)
}

// handleEngineEvent folds one engine event into the UI state.
//
//nolint:gocyclo // one case per event type
func (m Model) handleEngineEvent(ev appserver.Event) (Model, tea.Cmd) {
	switch ev.Type {
	case appserver.EventStateChanged:
		DebugLog("engine: state changed to %s", ev.State)
		m.statusBar.SetConnectionState(ev.State.String())
		m.syncInputState()
		switch ev.State {
		case appserver.StateConnected:
			d := m.client.Diagnostics()
			m.statusBar.SetServerInfo(d.CurrentModel, d.CLIVersion, d.LastPingLatencyMs)
			return m, tea.Batch(m.notify("Connected", "success"), m.loadThreadsCmd())
		case appserver.StateDisconnected:
			return m, m.notify("Disconnected", "warning")
		}
		return m, nil

	case appserver.EventTranscriptAppended:
		if ev.ThreadID == m.activeThreadID && ev.Delta != "" {
			if !m.chatView.Streaming() {
				m.chatView.StartStream()
			}
			m.chatView.AppendStream(ev.Delta)
		}
		return m, nil

	case appserver.EventTranscriptReplaced:
		// Emitted by thread/read; the open flow already rendered the items
		DebugLog("engine: transcript replaced for %s", ev.ThreadID)
		return m, nil

	case appserver.EventThreadStarted:
		DebugLog("engine: thread %s started", ev.ThreadID)
		return m, m.loadThreadsCmd()

	case appserver.EventTurnStarted:
		DebugLog("engine: turn %s started on %s", ev.TurnID, ev.ThreadID)
		m.syncTurnIndicators()
		if ev.ThreadID == m.activeThreadID {
			m.chatView.StartStream()
			m.inputArea.SetPlaceholder("Steer the running turn... (enter to send)")
		}
		return m, nil

	case appserver.EventTurnCompleted:
		DebugLog("engine: turn %s completed on %s", ev.TurnID, ev.ThreadID)
		m.syncTurnIndicators()
		if ev.ThreadID == m.activeThreadID {
			m.chatView.EndStream()
			m.inputArea.SetPlaceholder("Type a message... (enter to send)")
		}
		return m, nil

	case appserver.EventServerRequestQueued:
		if ev.Request == nil {
			return m, nil
		}
		DebugLog("engine: server request %s queued (%s)", ev.Request.ID, ev.Request.Kind)
		if !m.approval.Active() {
			m.approval.SetRequest(ev.Request)
			return m, nil
		}
		return m, m.notify("Approval pending (press p)", "warning")

	case appserver.EventServerRequestResolved:
		// Covers resolutions from any path, including API callers
		if ev.Request != nil && m.approval.Active() && m.approval.Request().ID == ev.Request.ID {
			m.approval.Clear()
		}
		return m, nil

	case appserver.EventDiagnosticsUpdated:
		d := m.client.Diagnostics()
		m.statusBar.SetServerInfo(d.CurrentModel, d.CLIVersion, d.LastPingLatencyMs)
		return m, nil

	case appserver.EventErrorOccurred:
		if ev.Err == nil {
			return m, nil
		}
		DebugLog("engine: error - %v", ev.Err)
		if ev.ThreadID != "" && ev.ThreadID == m.activeThreadID {
			m.chatView.AddEntry(components.Entry{
				Kind: components.EntryError,
				Text: apperrors.FormatUser(ev.Err),
			})
			return m, nil
		}
		return m, m.notify(apperrors.FormatUser(ev.Err), "error")
	}

	return m, nil
}

// handleApprovalResolved renders the outcome of a resolved server request.
func (m Model) handleApprovalResolved(msg ApprovalResolvedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		DebugLog("Update: ApprovalResolvedMsg - %v", msg.Err)
		return m, m.notify(apperrors.FormatUser(msg.Err), "error")
	}

	var cmds []tea.Cmd
	switch {
	case msg.Dismissed:
		cmds = append(cmds, m.notify("Unsupported request dismissed", "info"))
	case msg.Answered:
		cmds = append(cmds, m.notify("Answers sent", "success"))
	default:
		if msg.ThreadID == m.activeThreadID {
			m.chatView.AddEntry(components.Entry{
				Kind:   components.EntryApproval,
				Text:   msg.Label,
				Detail: string(msg.Decision),
			})
		}
	}

	// Surface the next queued request, if any
	if !m.approval.Active() {
		if pending := m.client.PendingServerRequests(); len(pending) > 0 {
			m.approval.SetRequest(pending[0])
		}
	}

	return m, tea.Batch(cmds...)
}

// updateComponentSizes recalculates and applies sizes to all components based on window dimensions
func (m *Model) updateComponentSizes() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// Reserve space for status bar (1 line)
	statusBarHeight := 1
	availableHeight := m.height - statusBarHeight

	// Calculate sidebar width
	sidebarWidth := 0
	if m.sidebarVisible {
		sidebarWidth = m.width / 4
		if sidebarWidth < 25 {
			sidebarWidth = 25
		}
		if sidebarWidth > 40 {
			sidebarWidth = 40
		}
	}

	// Calculate main area dimensions
	mainWidth := m.width - sidebarWidth
	inputAreaHeight := 5
	if inputAreaHeight > availableHeight/3 {
		inputAreaHeight = availableHeight / 3
	}
	chatViewHeight := availableHeight - inputAreaHeight

	// Update component sizes
	if m.sidebarVisible {
		m.threadList.SetSize(sidebarWidth, availableHeight)
	}
	m.chatView.SetSize(mainWidth, chatViewHeight)
	m.inputArea.SetSize(mainWidth, inputAreaHeight)
	m.statusBar.SetSize(m.width)
	m.helpOverlay.SetSize(m.width, m.height)
	m.approval.SetSize(m.width, m.height)
}

// cycleFocus moves focus to the next component
func (m *Model) cycleFocus() {
	// Blur current component
	if m.focusedArea == FocusInputArea {
		m.inputArea.Blur()
	}

	// Move to next focus area
	m.focusedArea = (m.focusedArea + 1) % 3

	// Skip thread list if not visible
	if m.focusedArea == FocusThreadList && !m.sidebarVisible {
		m.focusedArea = FocusChatView
	}

	// Focus new component
	if m.focusedArea == FocusInputArea {
		m.inputArea.Focus()
	}
}

// handleFocusedInput routes key messages to the currently focused component
func (m Model) handleFocusedInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedArea {
	case FocusThreadList:
		switch msg.String() {
		case "up", "k":
			m.threadList.CursorUp()
		case "down", "j":
			m.threadList.CursorDown()
		case "enter":
			if selected := m.threadList.Selected(); selected != nil {
				DebugLog("handleFocusedInput: Opening thread %s", selected.ID)
				return m, m.openThreadCmd(selected.ID)
			}
		case "n":
			DebugLog("handleFocusedInput: Starting new thread")
			return m, m.startThreadCmd()
		case "d":
			if selected := m.threadList.Selected(); selected != nil {
				DebugLog("handleFocusedInput: Archiving thread %s", selected.ID)
				return m, m.archiveThreadCmd(selected.ID)
			}
		case "r":
			DebugLog("handleFocusedInput: Refreshing threads")
			return m, m.loadThreadsCmd()
		}

	case FocusChatView:
		// ChatView handles its own scrolling via viewport
		_, cmd = m.chatView.Update(msg)

	case FocusInputArea:
		// Check if Enter should send message (Shift+Enter will still insert newline)
		if msg.String() == "enter" && m.config.UI.SendOnEnter && !m.inputArea.Disabled() {
			DebugLog("handleFocusedInput: Enter pressed in InputArea, calling onSendMessage")
			return m.onSendMessage()
		}
		_, cmd = m.inputArea.Update(msg)
	}

	return m, cmd
}

// onSendMessage submits the input area content to the active thread. A
// running turn is steered; otherwise a new turn starts.
func (m Model) onSendMessage() (tea.Model, tea.Cmd) {
	if m.activeThreadID == "" {
		DebugLog("onSendMessage: No active thread, cannot send")
		return m, m.notify("Open a thread first", "warning")
	}

	content := strings.TrimSpace(m.inputArea.GetValue())
	if content == "" {
		DebugLog("onSendMessage: Empty content, ignoring")
		return m, nil
	}

	DebugLog("onSendMessage: Sending to %s (length=%d)", m.activeThreadID, len(content))
	m.chatView.AddEntry(components.Entry{
		Kind: components.EntryUser,
		Text: content,
	})
	m.inputArea.Clear()

	return m, m.sendTurnCmd(m.activeThreadID, content)
}

// openNextApproval opens the oldest pending server request in the modal.
func (m Model) openNextApproval() (tea.Model, tea.Cmd) {
	pending := m.client.PendingServerRequests()
	if len(pending) == 0 {
		return m, m.notify("No pending approvals", "info")
	}
	m.approval.SetRequest(pending[0])
	return m, nil
}

// activateThread makes a thread current and renders its history.
func (m Model) activateThread(threadID string, thread *appserver.Thread) Model {
	m.activeThreadID = threadID
	m.statusBar.SetActiveThread(threadID)
	m.chatView.SetEntries(entriesFromThread(thread))
	m.syncTurnIndicators()
	m.syncInputState()

	// A resumed thread may have a turn already running
	if _, ok := m.client.ActiveTurn(threadID); ok {
		m.chatView.StartStream()
		m.inputArea.SetPlaceholder("Steer the running turn... (enter to send)")
	} else {
		m.inputArea.SetPlaceholder("Type a message... (enter to send)")
	}

	// Jump focus to the input so typing can start immediately
	m.focusedArea = FocusInputArea
	m.inputArea.Focus()
	return m
}

// clearActiveThread drops the current thread, e.g. after archiving it.
func (m Model) clearActiveThread() Model {
	m.activeThreadID = ""
	m.statusBar.SetActiveThread("")
	m.statusBar.SetTurnActive(false)
	m.chatView.SetEntries(nil)
	m.syncInputState()
	m.focusedArea = FocusThreadList
	m.inputArea.Blur()
	return m
}

// syncTurnIndicators refreshes the per-thread turn markers and the status
// bar turn flag from the engine's tracked turns.
func (m *Model) syncTurnIndicators() {
	turns := m.client.ActiveTurns()
	active := make(map[string]bool, len(turns))
	for threadID := range turns {
		active[threadID] = true
	}
	m.threadList.SetActiveTurns(active)
	_, turnRunning := turns[m.activeThreadID]
	m.statusBar.SetTurnActive(turnRunning)
}

// syncInputState enables the input only when a thread is open on a live
// connection.
func (m *Model) syncInputState() {
	connected := m.client.State() == appserver.StateConnected
	m.inputArea.SetDisabled(!connected || m.activeThreadID == "")
}

// notify shows a toast and returns its auto-dismiss timer.
func (m Model) notify(message, severity string) tea.Cmd {
	return m.notices.Show(message, severity)
}

// entriesFromThread maps thread history items to chat entries.
func entriesFromThread(thread *appserver.Thread) []components.Entry {
	if thread == nil {
		return nil
	}
	entries := make([]components.Entry, 0, len(thread.Items))
	for _, item := range thread.Items {
		if item.Text == "" {
			continue
		}
		switch item.Type {
		case appserver.ItemTypeUserMessage:
			entries = append(entries, components.Entry{Kind: components.EntryUser, Text: item.Text})
		case appserver.ItemTypeAgentMessage:
			entries = append(entries, components.Entry{Kind: components.EntryAgent, Text: item.Text})
		case appserver.ItemTypeReasoning:
			// Reasoning items are noise in the chat history
		default:
			entries = append(entries, components.Entry{Kind: components.EntrySystem, Text: item.Text})
		}
	}
	return entries
}

func threadItemCount(thread *appserver.Thread) int {
	if thread == nil {
		return 0
	}
	return len(thread.Items)
}

// waitForEvent blocks on the engine's event channel and delivers the next
// event. Re-armed by Update after every EngineEventMsg.
func (m Model) waitForEvent() tea.Cmd {
	events := m.client.Events()
	return func() tea.Msg {
		return EngineEventMsg{Event: <-events}
	}
}

func (m Model) connectCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiRequestTimeout)
		defer cancel()
		return ConnectResultMsg{Err: client.Connect(ctx)}
	}
}

func (m Model) loadThreadsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiRequestTimeout)
		defer cancel()
		threads, err := client.ListThreads(ctx)
		return ThreadsLoadedMsg{Threads: threads, Err: err}
	}
}

func (m Model) startThreadCmd() tea.Cmd {
	client := m.client
	opts := appserver.StartThreadOptions{
		Cwd:                   m.config.Defaults.Cwd,
		Model:                 m.config.Defaults.Model,
		ApprovalPolicy:        m.config.Defaults.ApprovalPolicy,
		DeveloperInstructions: m.config.Defaults.DeveloperInstructions,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiRequestTimeout)
		defer cancel()
		id, err := client.StartThread(ctx, opts)
		return ThreadStartedMsg{ThreadID: id, Err: err}
	}
}

func (m Model) openThreadCmd(threadID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiRequestTimeout)
		defer cancel()
		id, err := client.ResumeThread(ctx, threadID)
		if err != nil {
			return ThreadOpenedMsg{ThreadID: threadID, Err: err}
		}
		thread, err := client.ReadThread(ctx, id)
		return ThreadOpenedMsg{ThreadID: id, Thread: thread, Err: err}
	}
}

func (m Model) archiveThreadCmd(threadID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiRequestTimeout)
		defer cancel()
		return ThreadArchivedMsg{ThreadID: threadID, Err: client.ArchiveThread(ctx, threadID)}
	}
}

func (m Model) sendTurnCmd(threadID, text string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiRequestTimeout)
		defer cancel()
		if _, ok := client.ActiveTurn(threadID); ok {
			err := client.SteerTurn(ctx, threadID, "", text)
			return TurnResultMsg{ThreadID: threadID, Steered: true, Err: err}
		}
		turnID, err := client.StartTurn(ctx, threadID, text)
		return TurnResultMsg{ThreadID: threadID, TurnID: turnID, Err: err}
	}
}

func (m Model) interruptCmd() tea.Cmd {
	client := m.client
	threadID := m.activeThreadID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiRequestTimeout)
		defer cancel()
		return TurnInterruptedMsg{Err: client.InterruptTurn(ctx, threadID, "")}
	}
}

func (m Model) resolveApprovalCmd(req *appserver.PendingServerRequest, res components.Resolution) tea.Cmd {
	client := m.client

	label := req.Command
	if label == "" {
		label = req.Reason
	}
	if label == "" {
		label = req.Method
	}

	return func() tea.Msg {
		msg := ApprovalResolvedMsg{
			RequestID: res.RequestID,
			ThreadID:  req.ThreadID,
			Label:     label,
			Decision:  res.Decision,
		}
		switch {
		case res.Dismiss:
			msg.Dismissed = true
			msg.Err = client.DismissServerRequest(res.RequestID)
		case res.Answers != nil:
			msg.Answered = true
			msg.Err = client.RespondUserInput(res.RequestID, res.Answers)
		default:
			msg.Err = client.RespondApproval(res.RequestID, res.Decision)
		}
		return msg
	}
}
