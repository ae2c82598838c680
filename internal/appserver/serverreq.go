// ABOUTME: Inbound server request queue: approvals and user-input prompts awaiting a decision
// ABOUTME: Each entry keeps the peer's JSON-RPC id verbatim for the eventual response

package appserver

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harper/agentwire/internal/jsonrpc"
	"github.com/harper/agentwire/internal/logger"
)

// ServerRequestKind classifies what decision a pending server request needs.
type ServerRequestKind int

const (
	ServerRequestUnknown ServerRequestKind = iota
	ServerRequestCommandApproval
	ServerRequestFileChangeApproval
	ServerRequestUserInput
)

func (k ServerRequestKind) String() string {
	switch k {
	case ServerRequestCommandApproval:
		return "command-approval"
	case ServerRequestFileChangeApproval:
		return "file-change-approval"
	case ServerRequestUserInput:
		return "user-input"
	default:
		return "unknown"
	}
}

// ApprovalDecision values accepted by the app-server's approval requests.
type ApprovalDecision string

const (
	DecisionAccept           ApprovalDecision = "accept"
	DecisionAcceptForSession ApprovalDecision = "acceptForSession"
	DecisionDecline          ApprovalDecision = "decline"
	DecisionCancel           ApprovalDecision = "cancel"
)

// UserInputQuestion is one prompt inside a requestUserInput request.
type UserInputQuestion struct {
	ID      string
	Prompt  string
	Options []string
}

// PendingServerRequest is an inbound request awaiting a local decision. ID
// is generated locally so UI layers have a stable handle; RPCID is the
// peer's JSON-RPC id, echoed back verbatim when responding.
type PendingServerRequest struct {
	ID       string
	RPCID    json.RawMessage
	Method   string
	ThreadID string
	TurnID   string
	ItemID   string
	Kind     ServerRequestKind

	// Command approval detail.
	Command string
	Cwd     string

	// Shared by command and file-change approvals.
	Reason string

	// User-input detail.
	Questions []UserInputQuestion

	ReceivedAt time.Time
}

func parseServerRequest(env *jsonrpc.Envelope) *PendingServerRequest {
	req := &PendingServerRequest{
		ID:         uuid.New().String(),
		Method:     env.Method,
		ReceivedAt: time.Now(),
	}
	if env.ID != nil {
		req.RPCID = append(json.RawMessage(nil), *env.ID...)
	}

	params := jsonrpc.DecodeValue(env.Params)
	req.ThreadID = params.Get("threadId").AsString()
	req.TurnID = params.Get("turnId").AsString()
	req.ItemID = params.Get("itemId").AsString()

	switch env.Method {
	case MethodRequestCommandApproval:
		req.Kind = ServerRequestCommandApproval
		req.Command = commandString(params.Get("command"))
		req.Cwd = params.Get("cwd").AsString()
		req.Reason = params.Get("reason").AsString()
	case MethodRequestFileChangeApproval:
		req.Kind = ServerRequestFileChangeApproval
		req.Reason = params.Get("reason").AsString()
	case MethodRequestUserInput:
		req.Kind = ServerRequestUserInput
		req.Questions = parseQuestions(params.Get("questions"))
	default:
		req.Kind = ServerRequestUnknown
	}
	return req
}

// commandString renders a command that may arrive as a string or an argv
// array.
func commandString(v jsonrpc.Value) string {
	if v.Kind() == jsonrpc.KindArray {
		items := v.AsArray()
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, item.AsString())
		}
		return strings.Join(parts, " ")
	}
	return v.AsString()
}

func parseQuestions(v jsonrpc.Value) []UserInputQuestion {
	items := v.AsArray()
	if len(items) == 0 {
		return nil
	}

	qs := make([]UserInputQuestion, 0, len(items))
	for _, item := range items {
		q := UserInputQuestion{
			ID:     item.Get("id").AsString(),
			Prompt: item.Get("question").AsString(),
		}
		if q.Prompt == "" {
			q.Prompt = item.Get("prompt").AsString()
		}
		if q.Prompt == "" {
			q.Prompt = item.Get("label").AsString()
		}
		for _, opt := range item.Get("options").AsArray() {
			label := opt.AsString()
			if label == "" {
				label = opt.Get("label").AsString()
			}
			if label != "" {
				q.Options = append(q.Options, label)
			}
		}
		qs = append(qs, q)
	}
	return qs
}

// queueServerRequest parses an inbound request envelope into the visible
// queue. Called only from the receive loop.
func (c *Client) queueServerRequest(env *jsonrpc.Envelope) {
	req := parseServerRequest(env)

	c.mu.Lock()
	c.serverReqs = append(c.serverReqs, req)
	c.mu.Unlock()

	logger.Info("server request %s queued: %s (%s)", req.ID[:8], req.Method, req.Kind)
	c.emit(Event{Type: EventServerRequestQueued, ThreadID: req.ThreadID, TurnID: req.TurnID, Request: req})
}

// PendingServerRequests returns a snapshot of undecided server requests in
// arrival order.
func (c *Client) PendingServerRequests() []*PendingServerRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*PendingServerRequest, len(c.serverReqs))
	copy(out, c.serverReqs)
	return out
}

// takeServerRequest removes and returns the pending entry with the given
// local id. Claiming under the lock guarantees a single responder even when
// two callers race on the same entry.
func (c *Client) takeServerRequest(id string, kinds ...ServerRequestKind) (*PendingServerRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, req := range c.serverReqs {
		if req.ID != id {
			continue
		}
		match := len(kinds) == 0
		for _, k := range kinds {
			if req.Kind == k {
				match = true
			}
		}
		if !match {
			return nil, fmt.Errorf("server request %s is a %s request and cannot be answered this way", id, req.Kind)
		}
		c.serverReqs = append(c.serverReqs[:i], c.serverReqs[i+1:]...)
		return req, nil
	}
	return nil, fmt.Errorf("no pending server request %s", id)
}

// respondServerRequest sends the response envelope for a claimed entry. No
// new request id is allocated; the peer's id is echoed back.
func (c *Client) respondServerRequest(req *PendingServerRequest, result json.RawMessage, rpcErr *jsonrpc.Error) error {
	var env *jsonrpc.Envelope
	if rpcErr != nil {
		env = jsonrpc.NewErrorResponse(req.RPCID, rpcErr)
	} else {
		env = jsonrpc.NewResponse(req.RPCID, result)
	}

	if err := c.send(env); err != nil {
		return fmt.Errorf("respond to %s: %w", req.Method, err)
	}

	logger.Info("server request %s resolved", req.ID[:8])
	c.emit(Event{Type: EventServerRequestResolved, ThreadID: req.ThreadID, TurnID: req.TurnID, Request: req})
	return nil
}

// RespondApproval answers a command or file-change approval request.
func (c *Client) RespondApproval(requestID string, decision ApprovalDecision) error {
	switch decision {
	case DecisionAccept, DecisionAcceptForSession, DecisionDecline, DecisionCancel:
	default:
		return fmt.Errorf("unsupported decision %q", decision)
	}

	req, err := c.takeServerRequest(requestID, ServerRequestCommandApproval, ServerRequestFileChangeApproval)
	if err != nil {
		return err
	}

	result, err := json.Marshal(map[string]ApprovalDecision{"decision": decision})
	if err != nil {
		return err
	}
	return c.respondServerRequest(req, result, nil)
}

// RespondUserInput answers a requestUserInput request with a map of question
// id to answer.
func (c *Client) RespondUserInput(requestID string, answers map[string]string) error {
	req, err := c.takeServerRequest(requestID, ServerRequestUserInput)
	if err != nil {
		return err
	}

	if answers == nil {
		answers = map[string]string{}
	}
	result, err := json.Marshal(map[string]map[string]string{"answers": answers})
	if err != nil {
		return err
	}
	return c.respondServerRequest(req, result, nil)
}

// DismissServerRequest declines any pending entry with a method-not-found
// error. This is the answer for unknown request kinds.
func (c *Client) DismissServerRequest(requestID string) error {
	req, err := c.takeServerRequest(requestID)
	if err != nil {
		return err
	}
	return c.respondServerRequest(req, nil, &jsonrpc.Error{
		Code:    jsonrpc.MethodNotFound,
		Message: "unsupported server request",
	})
}
