// ABOUTME: Wire method names for the app-server JSON-RPC protocol
// ABOUTME: Grouped by direction: client-issued, server-issued requests, notifications

package appserver

// Methods issued by this client.
const (
	// MethodInitialize must be the first request on every connection.
	MethodInitialize = "initialize"
	// MethodInitialized is the notification sent after initialize succeeds.
	MethodInitialized = "initialized"

	MethodThreadList    = "thread/list"
	MethodThreadRead    = "thread/read"
	MethodThreadStart   = "thread/start"
	MethodThreadResume  = "thread/resume"
	MethodThreadArchive = "thread/archive"

	MethodTurnStart     = "turn/start"
	MethodTurnSteer     = "turn/steer"
	MethodTurnInterrupt = "turn/interrupt"
)

// Requests the app-server issues to this client. Each one expects a response
// envelope echoing the server's id.
const (
	MethodRequestCommandApproval    = "item/commandExecution/requestApproval"
	MethodRequestFileChangeApproval = "item/fileChange/requestApproval"
	MethodRequestUserInput          = "item/tool/requestUserInput"
)

// Notifications streamed by the app-server. Anything not listed here is
// tolerated and ignored.
const (
	NotifyAgentMessageDelta  = "item/agentMessage/delta"
	NotifyCommandOutputDelta = "item/commandExecution/outputDelta"
	NotifyTurnStarted        = "turn/started"
	NotifyTurnCompleted      = "turn/completed"
	NotifyThreadStarted      = "thread/started"
	NotifyError              = "error"
)

// ThreadItem union tags.
const (
	ItemTypeUserMessage      = "userMessage"
	ItemTypeAgentMessage     = "agentMessage"
	ItemTypeCommandExecution = "commandExecution"
	ItemTypeFileChange       = "fileChange"
	ItemTypeMCPToolCall      = "mcpToolCall"
	ItemTypeReasoning        = "reasoning"
)
