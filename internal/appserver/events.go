// ABOUTME: Observable event stream the protocol client publishes for UI layers
// ABOUTME: Emission never blocks; a slow consumer drops events instead of stalling the engine

package appserver

// EventType says which Event fields are meaningful.
type EventType int

const (
	EventStateChanged EventType = iota
	EventTranscriptAppended
	EventTranscriptReplaced
	EventThreadStarted
	EventTurnStarted
	EventTurnCompleted
	EventServerRequestQueued
	EventServerRequestResolved
	EventDiagnosticsUpdated
	EventErrorOccurred
)

func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state-changed"
	case EventTranscriptAppended:
		return "transcript-appended"
	case EventTranscriptReplaced:
		return "transcript-replaced"
	case EventThreadStarted:
		return "thread-started"
	case EventTurnStarted:
		return "turn-started"
	case EventTurnCompleted:
		return "turn-completed"
	case EventServerRequestQueued:
		return "server-request-queued"
	case EventServerRequestResolved:
		return "server-request-resolved"
	case EventDiagnosticsUpdated:
		return "diagnostics-updated"
	case EventErrorOccurred:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one observable change in client state. Consumers that need the
// full picture read the snapshot accessors after each event; the fields here
// carry just enough to know what moved.
type Event struct {
	Type     EventType
	State    State
	ThreadID string
	TurnID   string
	Delta    string
	Request  *PendingServerRequest
	Err      error
}
