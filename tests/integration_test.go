// ABOUTME: Cross-package integration test driving the full protocol flow
// ABOUTME: Connect, handshake, thread, turn, streaming, approval, and wire logging against a scripted app-server

package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/agentwire/internal/appserver"
	"github.com/harper/agentwire/internal/config"
	"github.com/harper/agentwire/internal/jsonrpc"
	"github.com/harper/agentwire/internal/wirelog"
)

// wsConn wraps one upgraded server-side connection with envelope helpers.
// Helpers swallow transport errors and return nil so the script can bail out;
// the client side of the test surfaces the failure.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *wsConn) read() *jsonrpc.Envelope {
	_ = s.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil
	}
	env, err := jsonrpc.Decode(data)
	if err != nil {
		return nil
	}
	return env
}

func (s *wsConn) write(env *jsonrpc.Envelope) {
	data, err := jsonrpc.Encode(env)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsConn) respond(id *json.RawMessage, result any) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	var rid json.RawMessage
	if id != nil {
		rid = *id
	}
	s.write(jsonrpc.NewResponse(rid, payload))
}

func (s *wsConn) notify(method string, params any) {
	payload, err := json.Marshal(params)
	if err != nil {
		return
	}
	s.write(jsonrpc.NewNotification(method, payload))
}

func (s *wsConn) request(id any, method string, params any) {
	rawID, err := json.Marshal(id)
	if err != nil {
		return
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return
	}
	rid := json.RawMessage(rawID)
	s.write(&jsonrpc.Envelope{JSONRPC: jsonrpc.Version, ID: &rid, Method: method, Params: payload})
}

// pump consumes frames until the connection dies so control frames keep being
// serviced while the client idles or disconnects.
func (s *wsConn) pump() {
	_ = s.conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// waitEvent drains the event stream until the wanted type shows up.
func waitEvent(t *testing.T, events <-chan appserver.Event, want appserver.EventType) appserver.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
			return appserver.Event{}
		}
	}
}

func TestFullProtocolFlow(t *testing.T) {
	clientNames := make(chan string, 1)
	apiKeys := make(chan string, 1)
	approvalEchoes := make(chan *jsonrpc.Envelope, 1)

	script := func(s *wsConn) {
		// Handshake
		env := s.read()
		if env == nil || env.Method != appserver.MethodInitialize {
			return
		}
		params := jsonrpc.DecodeValue(env.Params)
		clientNames <- params.Lookup("clientInfo", "name").AsString()
		s.respond(env.ID, map[string]any{
			"cliVersion":   "0.105.0",
			"authStatus":   "authenticated",
			"currentModel": "gpt-5-codex",
		})
		if env = s.read(); env == nil || env.Method != appserver.MethodInitialized {
			return
		}

		// Thread creation
		if env = s.read(); env == nil || env.Method != appserver.MethodThreadStart {
			return
		}
		s.respond(env.ID, map[string]any{"thread": map[string]any{"id": "th-main"}})
		s.notify(appserver.NotifyThreadStarted, map[string]any{
			"thread": map[string]any{"id": "th-main"},
		})

		// Turn with streamed output
		if env = s.read(); env == nil || env.Method != appserver.MethodTurnStart {
			return
		}
		s.respond(env.ID, map[string]any{"turn": map[string]any{"id": "turn-1"}})
		s.notify(appserver.NotifyTurnStarted, map[string]any{
			"threadId": "th-main",
			"turn":     map[string]any{"id": "turn-1"},
		})
		for _, delta := range []string{"Let me ", "check the ", "tests."} {
			s.notify(appserver.NotifyAgentMessageDelta, map[string]any{
				"threadId": "th-main",
				"delta":    delta,
			})
		}

		// Approval round trip before the turn finishes
		s.request(7001, appserver.MethodRequestCommandApproval, map[string]any{
			"threadId": "th-main",
			"turnId":   "turn-1",
			"itemId":   "item-9",
			"command":  []string{"go", "test", "./..."},
			"cwd":      "/work/repo",
			"reason":   "runs the project tests",
		})
		if env = s.read(); env == nil {
			return
		}
		approvalEchoes <- env
		s.notify(appserver.NotifyTurnCompleted, map[string]any{
			"threadId": "th-main",
			"turn":     map[string]any{"id": "turn-1"},
		})

		// Thread index and history reads
		if env = s.read(); env == nil || env.Method != appserver.MethodThreadList {
			return
		}
		s.respond(env.ID, map[string]any{"threads": []map[string]any{{
			"id":        "th-main",
			"title":     "Test drive",
			"updatedAt": "2026-08-23T10:00:00Z",
		}}})

		if env = s.read(); env == nil || env.Method != appserver.MethodThreadRead {
			return
		}
		s.respond(env.ID, map[string]any{
			"thread": map[string]any{"id": "th-main"},
			"items": []map[string]any{
				{"id": "i-1", "type": appserver.ItemTypeUserMessage, "text": "run the tests"},
				{"id": "i-2", "type": appserver.ItemTypeAgentMessage, "text": "Let me check the tests."},
			},
		})

		s.pump()
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case apiKeys <- r.Header.Get("X-Api-Key"):
		default:
		}
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		script(&wsConn{conn: conn})
	}))
	t.Cleanup(srv.Close)

	logPath := filepath.Join(t.TempDir(), "frames.db")
	cfg := &config.Config{
		Endpoint: config.EndpointConfig{
			URL:           "ws" + srv.URL[4:],
			Headers:       map[string]string{"X-Api-Key": "secret-123"},
			AllowLoopback: true,
		},
		Defaults: config.DefaultsConfig{Model: "gpt-5-codex", ApprovalPolicy: "on-request"},
		WireLog:  config.WireLogConfig{Enabled: true, Path: logPath},
	}
	require.NoError(t, cfg.Validate())

	frameLog, err := wirelog.Open(cfg.WireLog.Path)
	require.NoError(t, err)

	client := appserver.New(appserver.Options{
		URL:           cfg.Endpoint.URL,
		Headers:       cfg.Endpoint.Headers,
		Compression:   cfg.Endpoint.Compression,
		AllowLoopback: cfg.Endpoint.AllowLoopback,
		Recorder:      frameLog,
	})
	events := client.Events()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, client.Connect(ctx))
	assert.Equal(t, appserver.StateConnected, client.State())
	assert.Equal(t, "agentwire", <-clientNames)
	assert.Equal(t, "secret-123", <-apiKeys)

	diag := client.Diagnostics()
	assert.Equal(t, "0.105.0", diag.CLIVersion)
	assert.Equal(t, "gpt-5-codex", diag.CurrentModel)
	t.Logf("connected: cli=%s model=%s", diag.CLIVersion, diag.CurrentModel)

	threadID, err := client.StartThread(ctx, appserver.StartThreadOptions{
		Model:          cfg.Defaults.Model,
		ApprovalPolicy: cfg.Defaults.ApprovalPolicy,
	})
	require.NoError(t, err)
	assert.Equal(t, "th-main", threadID)

	turnID, err := client.StartTurn(ctx, threadID, "run the tests")
	require.NoError(t, err)
	assert.Equal(t, "turn-1", turnID)

	queued := waitEvent(t, events, appserver.EventServerRequestQueued)
	req := queued.Request
	require.NotNil(t, req)
	assert.Equal(t, appserver.ServerRequestCommandApproval, req.Kind)
	assert.Equal(t, "go test ./...", req.Command)
	assert.Equal(t, "/work/repo", req.Cwd)
	assert.Equal(t, "th-main", req.ThreadID)
	t.Logf("approval requested: %s", req.Command)

	// The turn stays active while the approval is outstanding
	_, running := client.ActiveTurn(threadID)
	assert.True(t, running)

	require.NoError(t, client.RespondApproval(req.ID, appserver.DecisionAccept))

	select {
	case echo := <-approvalEchoes:
		require.NotNil(t, echo.ID)
		assert.Equal(t, "7001", string(*echo.ID))
		assert.JSONEq(t, `{"decision":"accept"}`, string(echo.Result))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the approval response")
	}

	waitEvent(t, events, appserver.EventTurnCompleted)
	assert.Equal(t, "Let me check the tests.", client.Transcript(threadID))
	_, running = client.ActiveTurn(threadID)
	assert.False(t, running)

	threads, err := client.ListThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "Test drive", threads[0].Title)

	thread, err := client.ReadThread(ctx, threadID)
	require.NoError(t, err)
	require.Len(t, thread.Items, 2)
	assert.Equal(t, appserver.ItemTypeAgentMessage, thread.Items[1].Type)
	assert.Equal(t, "Let me check the tests.", client.Transcript(threadID))

	client.Disconnect()
	assert.Equal(t, appserver.StateDisconnected, client.State())

	// Flush and audit the wire log through a fresh handle
	require.NoError(t, frameLog.Close())
	records, err := wirelog.Open(logPath)
	require.NoError(t, err)
	defer records.Close()

	counts, err := records.CountByMethod()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[appserver.MethodInitialize])
	assert.Equal(t, int64(1), counts[appserver.MethodThreadStart])
	assert.Equal(t, int64(1), counts[appserver.MethodTurnStart])
	assert.Equal(t, int64(3), counts[appserver.NotifyAgentMessageDelta])
	assert.Equal(t, int64(1), counts[appserver.MethodRequestCommandApproval])

	recent, err := records.Recent(5)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
	t.Logf("wire log recorded %d distinct methods", len(counts))
}
