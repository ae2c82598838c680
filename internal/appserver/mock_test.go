// ABOUTME: Scripted mock app-server shared by the client tests
// ABOUTME: Each accepted WebSocket connection runs a test-supplied script on its own goroutine

package appserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harper/agentwire/internal/jsonrpc"
)

// mockServer upgrades incoming connections and hands each one to the
// configured script. Request counts and accept times are recorded for the
// reconnect tests.
type mockServer struct {
	srv    *httptest.Server
	script func(*serverConn)

	// accept, when set, decides per request number (1-based) whether the
	// upgrade goes ahead. Refused requests get a plain 503.
	accept func(n int) bool

	mu    sync.Mutex
	count int
	times []time.Time
}

func newMockServer(t *testing.T, script func(*serverConn)) *mockServer {
	m := &mockServer{script: script}
	m.srv = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *mockServer) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.count++
	n := m.count
	m.times = append(m.times, time.Now())
	accept := m.accept
	m.mu.Unlock()

	if accept != nil && !accept(n) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	m.script(&serverConn{conn: conn, index: n})
}

// setAccept installs the per-request gate. Goes through the mutex because
// handler goroutines read it concurrently.
func (m *mockServer) setAccept(fn func(n int) bool) {
	m.mu.Lock()
	m.accept = fn
	m.mu.Unlock()
}

func (m *mockServer) url() string {
	return "ws" + m.srv.URL[4:]
}

func (m *mockServer) connections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *mockServer) acceptTimes() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Time, len(m.times))
	copy(out, m.times)
	return out
}

// serverConn wraps one upgraded connection with envelope-level helpers. The
// helpers swallow transport errors and return nil so a script can just bail
// out; the client side of the test surfaces the failure.
type serverConn struct {
	conn  *websocket.Conn
	index int

	writeMu sync.Mutex
}

func (s *serverConn) read() *jsonrpc.Envelope {
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

func (s *serverConn) write(env *jsonrpc.Envelope) {
	data, err := jsonrpc.Encode(env)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *serverConn) respond(id *json.RawMessage, result any) {
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

func (s *serverConn) respondError(id *json.RawMessage, code int, message string) {
	var rid json.RawMessage
	if id != nil {
		rid = *id
	}
	s.write(jsonrpc.NewErrorResponse(rid, &jsonrpc.Error{Code: code, Message: message}))
}

func (s *serverConn) notify(method string, params any) {
	payload, err := json.Marshal(params)
	if err != nil {
		return
	}
	s.write(jsonrpc.NewNotification(method, payload))
}

// request sends a server-initiated request. The id may be a number or a
// string; it is forwarded verbatim.
func (s *serverConn) request(id any, method string, params any) {
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

// serveHandshake answers the client's initialize request with result and
// consumes the initialized notification. Returns false if the exchange never
// completed.
func (s *serverConn) serveHandshake(result map[string]any) bool {
	env := s.read()
	if env == nil || env.Method != MethodInitialize {
		return false
	}
	s.respond(env.ID, result)
	env = s.read()
	return env != nil && env.Method == MethodInitialized
}

// pump consumes frames until the connection dies so control frames keep being
// serviced while the test writes from its own goroutine.
func (s *serverConn) pump() {
	_ = s.conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func initResult(version string) map[string]any {
	return map[string]any{
		"cliVersion":   version,
		"authStatus":   "authenticated",
		"currentModel": "gpt-5-codex",
	}
}

// newTestClient builds a client pointed at the mock with timing tightened
// for tests.
func newTestClient(url string) *Client {
	c := New(Options{URL: url, AllowLoopback: true})
	c.requestTimeout = 2 * time.Second
	c.backoffBase = 25 * time.Millisecond
	return c
}

func waitEnvelope(t *testing.T, ch <-chan *jsonrpc.Envelope) *jsonrpc.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}
