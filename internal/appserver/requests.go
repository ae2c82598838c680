// ABOUTME: Outbound request plumbing and the typed thread/turn operations
// ABOUTME: Every request races its result slot against the fixed per-call timeout

package appserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/harper/agentwire/internal/errors"
	"github.com/harper/agentwire/internal/jsonrpc"
	"github.com/harper/agentwire/internal/logger"
	"github.com/harper/agentwire/internal/router"
)

// Request sends method with params and waits for the matching response,
// decoded into the dynamic value union. Exactly one of result, remote error,
// timeout, or send failure happens per call; a response arriving after the
// timeout already fired is dropped by the router.
func (c *Client) Request(ctx context.Context, method string, params any) (jsonrpc.Value, error) {
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return jsonrpc.Null(), fmt.Errorf("marshal %s params: %w", method, err)
		}
		raw = encoded
	}

	c.mu.RLock()
	sess, rt := c.sess, c.rt
	timeout := c.requestTimeout
	c.mu.RUnlock()
	if sess == nil || rt == nil {
		return jsonrpc.Null(), apperrors.ErrNotConnected
	}

	id := rt.NextID()
	slot, err := rt.Register(id)
	if err != nil {
		return jsonrpc.Null(), err
	}

	frame, err := jsonrpc.Encode(jsonrpc.NewRequest(id, method, raw))
	if err != nil {
		rt.Resolve(id, router.Result{Err: err})
		res := <-slot
		return jsonrpc.Null(), res.Err
	}

	logger.Debug("-> %s (id %d)", method, id)
	c.recordFrame(DirectionSend, frame)
	if err := sess.Send(frame); err != nil {
		rt.Resolve(id, router.Result{Err: fmt.Errorf("send %s: %w", method, err)})
		res := <-slot
		return jsonrpc.Null(), res.Err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res router.Result
	select {
	case res = <-slot:
	case <-timer.C:
		// Resolve either wins the race or loses it to a real response;
		// either way the slot holds exactly one result afterwards.
		rt.Resolve(id, router.Result{Err: &apperrors.TimeoutError{Method: method}})
		res = <-slot
	case <-ctx.Done():
		rt.Resolve(id, router.Result{Err: ctx.Err()})
		res = <-slot
	}

	if res.Err != nil {
		logger.Debug("<- %s (id %d) failed: %v", method, id, res.Err)
		return jsonrpc.Null(), res.Err
	}
	return jsonrpc.DecodeValue(res.Payload), nil
}

// Notify sends a fire-and-forget notification.
func (c *Client) Notify(method string, params any) error {
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
		raw = encoded
	}
	logger.Debug("-> %s (notification)", method)
	return c.send(jsonrpc.NewNotification(method, raw))
}

// ThreadSummary is one row of the thread/list index.
type ThreadSummary struct {
	ID        string
	Title     string
	UpdatedAt string
}

// Thread is the detailed view returned by thread/read.
type Thread struct {
	ID    string
	Items []ThreadItem
}

// ThreadItem is one entry in a thread's history.
type ThreadItem struct {
	ID   string
	Type string
	Text string
}

// StartThreadOptions seed a new thread. Zero values are omitted from the
// request and the server picks its defaults.
type StartThreadOptions struct {
	Cwd                   string `json:"cwd,omitempty"`
	Model                 string `json:"model,omitempty"`
	ApprovalPolicy        string `json:"approvalPolicy,omitempty"`
	DeveloperInstructions string `json:"developerInstructions,omitempty"`
}

type threadIDParams struct {
	ThreadID string `json:"threadId"`
}

type inputItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textInput(text string) []inputItem {
	return []inputItem{{Type: "text", Text: text}}
}

// ListThreads fetches the server's thread index.
func (c *Client) ListThreads(ctx context.Context) ([]ThreadSummary, error) {
	result, err := c.Request(ctx, MethodThreadList, nil)
	if err != nil {
		return nil, err
	}
	return parseThreadList(result), nil
}

// parseThreadList probes the array keys different app-server releases have
// used for the thread index.
func parseThreadList(result jsonrpc.Value) []ThreadSummary {
	var items []jsonrpc.Value
	for _, key := range []string{"threads", "items", "data"} {
		if arr := result.Get(key).AsArray(); len(arr) > 0 {
			items = arr
			break
		}
	}

	out := make([]ThreadSummary, 0, len(items))
	for _, item := range items {
		id := item.Get("id").AsString()
		if id == "" {
			id = item.Get("threadId").AsString()
		}
		if id == "" {
			continue
		}
		out = append(out, ThreadSummary{
			ID:        id,
			Title:     item.Get("title").AsString(),
			UpdatedAt: item.Get("updatedAt").AsString(),
		})
	}
	return out
}

// ReadThread fetches a thread's history and replaces the locally accumulated
// transcript with the server's authoritative agent-message text.
func (c *Client) ReadThread(ctx context.Context, threadID string) (*Thread, error) {
	result, err := c.Request(ctx, MethodThreadRead, threadIDParams{ThreadID: threadID})
	if err != nil {
		return nil, err
	}

	thread := &Thread{ID: result.Lookup("thread", "id").AsString()}
	if thread.ID == "" {
		thread.ID = threadID
	}

	items := result.Get("items").AsArray()
	if len(items) == 0 {
		items = result.Lookup("thread", "items").AsArray()
	}

	var text strings.Builder
	for _, item := range items {
		ti := ThreadItem{
			ID:   item.Get("id").AsString(),
			Type: item.Get("type").AsString(),
			Text: item.Get("text").AsString(),
		}
		if ti.ID == "" {
			ti.ID = item.Get("itemId").AsString()
		}
		thread.Items = append(thread.Items, ti)
		if ti.Type == ItemTypeAgentMessage && ti.Text != "" {
			text.WriteString(ti.Text)
		}
	}

	c.mu.Lock()
	replacement := &strings.Builder{}
	replacement.WriteString(text.String())
	c.transcripts[thread.ID] = replacement
	c.mu.Unlock()
	c.emit(Event{Type: EventTranscriptReplaced, ThreadID: thread.ID})

	return thread, nil
}

// StartThread creates a new thread and returns its server-assigned id.
func (c *Client) StartThread(ctx context.Context, opts StartThreadOptions) (string, error) {
	result, err := c.Request(ctx, MethodThreadStart, opts)
	if err != nil {
		return "", err
	}
	id := result.Lookup("thread", "id").AsString()
	if id == "" {
		return "", &apperrors.MalformedResponseError{Detail: "thread/start result has no thread id"}
	}
	return id, nil
}

// ResumeThread reattaches to an existing thread. Servers may return the
// thread object or an empty result; either way the caller keeps a usable id.
func (c *Client) ResumeThread(ctx context.Context, threadID string) (string, error) {
	result, err := c.Request(ctx, MethodThreadResume, threadIDParams{ThreadID: threadID})
	if err != nil {
		return "", err
	}
	if id := result.Lookup("thread", "id").AsString(); id != "" {
		return id, nil
	}
	return threadID, nil
}

// ArchiveThread removes a thread from the server's index.
func (c *Client) ArchiveThread(ctx context.Context, threadID string) error {
	_, err := c.Request(ctx, MethodThreadArchive, threadIDParams{ThreadID: threadID})
	return err
}

type turnStartParams struct {
	ThreadID string      `json:"threadId"`
	Input    []inputItem `json:"input"`
}

// StartTurn submits user input to a thread and returns the new turn id, or a
// local placeholder when the response lacks one.
func (c *Client) StartTurn(ctx context.Context, threadID, text string) (string, error) {
	result, err := c.Request(ctx, MethodTurnStart, turnStartParams{
		ThreadID: threadID,
		Input:    textInput(text),
	})
	if err != nil {
		return "", err
	}

	id := result.Lookup("turn", "id").AsString()
	if id == "" {
		id = "local-" + uuid.New().String()[:8]
		logger.Debug("turn/start result had no turn id, using placeholder %s", id)
	}
	return id, nil
}

type turnSteerParams struct {
	ThreadID string      `json:"threadId"`
	TurnID   string      `json:"turnId"`
	Input    []inputItem `json:"input"`
}

// SteerTurn injects additional input into a running turn. An empty turnID
// falls back to the thread's tracked active turn.
func (c *Client) SteerTurn(ctx context.Context, threadID, turnID, text string) error {
	turnID, err := c.resolveTurnID(threadID, turnID)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, MethodTurnSteer, turnSteerParams{
		ThreadID: threadID,
		TurnID:   turnID,
		Input:    textInput(text),
	})
	return err
}

type turnRefParams struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
}

// InterruptTurn cancels a running turn. An empty turnID falls back to the
// thread's tracked active turn.
func (c *Client) InterruptTurn(ctx context.Context, threadID, turnID string) error {
	turnID, err := c.resolveTurnID(threadID, turnID)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, MethodTurnInterrupt, turnRefParams{ThreadID: threadID, TurnID: turnID})
	return err
}

func (c *Client) resolveTurnID(threadID, turnID string) (string, error) {
	if turnID != "" {
		return turnID, nil
	}
	if id, ok := c.ActiveTurn(threadID); ok {
		return id, nil
	}
	return "", fmt.Errorf("thread %s has no active turn", threadID)
}
