// ABOUTME: Protocol client orchestrating the app-server connection lifecycle
// ABOUTME: Owns one session+router generation at a time and publishes state to observers

package appserver

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/harper/agentwire/internal/errors"
	"github.com/harper/agentwire/internal/jsonrpc"
	"github.com/harper/agentwire/internal/logger"
	"github.com/harper/agentwire/internal/router"
	"github.com/harper/agentwire/internal/transport"
)

// State of the connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	defaultRequestTimeout = 30 * time.Second
	defaultPingInterval   = 20 * time.Second
	defaultPingTimeout    = 10 * time.Second
	connectTimeout        = 30 * time.Second
	eventBuffer           = 128
)

// Direction labels for recorded frames.
const (
	DirectionSend    = "send"
	DirectionReceive = "recv"
)

// FrameRecorder observes raw frames in both directions, for wire logging.
// Implementations must not block; the engine calls it on hot paths.
type FrameRecorder interface {
	RecordFrame(direction string, payload []byte)
}

// Options configures a Client. Only URL is required.
type Options struct {
	URL string

	// ClientName, ClientTitle, and ClientVersion identify this client in the
	// initialize handshake.
	ClientName    string
	ClientTitle   string
	ClientVersion string

	// Headers are added to the websocket upgrade request.
	Headers map[string]string

	// Compression offers permessage-deflate on dial.
	Compression bool

	// AllowLoopback permits localhost endpoints for local development.
	AllowLoopback bool

	// MinimumVersion overrides MinimumAppServerVersion for the handshake
	// gate.
	MinimumVersion string

	// Recorder, when set, sees every raw frame sent and received.
	Recorder FrameRecorder
}

// Client drives the JSON-RPC protocol with one app-server. All methods are
// safe for concurrent use. Observable state (transcripts, active turns,
// pending server requests, diagnostics) is read through snapshot accessors
// and changes are announced on the Events channel.
type Client struct {
	opts Options

	// lifeMu serializes connect, disconnect, and reconnect decisions so only
	// one lifecycle transition runs at a time.
	lifeMu sync.Mutex

	mu          sync.RWMutex
	state       State
	sess        *transport.Session
	rt          *router.Router
	cancel      context.CancelFunc
	wg          *sync.WaitGroup
	transcripts map[string]*strings.Builder
	activeTurns map[string]string
	serverReqs  []*PendingServerRequest
	diag        Diagnostics
	lastErr     error

	autoReconnect bool
	attempts      int

	events chan Event

	// Timing knobs, fixed in production and shortened by tests.
	requestTimeout time.Duration
	pingInterval   time.Duration
	pingTimeout    time.Duration
	backoffBase    time.Duration
}

// New builds a disconnected client. Connect starts the lifecycle.
func New(opts Options) *Client {
	if opts.ClientName == "" {
		opts.ClientName = "agentwire"
	}
	if opts.ClientTitle == "" {
		opts.ClientTitle = "Agentwire"
	}
	if opts.ClientVersion == "" {
		opts.ClientVersion = clientVersion
	}
	if opts.MinimumVersion == "" {
		opts.MinimumVersion = MinimumAppServerVersion
	}

	return &Client{
		opts:           opts,
		transcripts:    make(map[string]*strings.Builder),
		activeTurns:    make(map[string]string),
		diag:           Diagnostics{MinimumRequiredVersion: opts.MinimumVersion},
		events:         make(chan Event, eventBuffer),
		requestTimeout: defaultRequestTimeout,
		pingInterval:   defaultPingInterval,
		pingTimeout:    defaultPingTimeout,
		backoffBase:    time.Second,
	}
}

// Events delivers state changes, transcript appends, turn lifecycle, and
// queued server requests. The channel is never closed; emission drops when
// the buffer is full.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Transcript returns the accumulated streamed output for a thread.
func (c *Client) Transcript(threadID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if b, ok := c.transcripts[threadID]; ok {
		return b.String()
	}
	return ""
}

// ActiveTurn returns the in-flight turn id for a thread, if any.
func (c *Client) ActiveTurn(threadID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.activeTurns[threadID]
	return id, ok
}

// ActiveTurns returns a snapshot of every thread with a running turn.
func (c *Client) ActiveTurns() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.activeTurns))
	for thread, turn := range c.activeTurns {
		out[thread] = turn
	}
	return out
}

// Diagnostics returns the latest health snapshot.
func (c *Client) Diagnostics() Diagnostics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.diag
}

// LastError returns the most recent connection- or protocol-level error.
func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Connect dials the configured endpoint and runs the protocol handshake.
// It enables auto-reconnect and resets the attempt counter; an explicit
// Disconnect turns auto-reconnect off again.
func (c *Client) Connect(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.Lock()
	c.autoReconnect = true
	c.attempts = 0
	c.mu.Unlock()

	return c.connect(ctx)
}

// Disconnect tears the connection down and disables auto-reconnect.
func (c *Client) Disconnect() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.Lock()
	c.autoReconnect = false
	c.mu.Unlock()

	logger.Info("disconnecting from %s", c.opts.URL)
	c.teardown(apperrors.ErrNotConnected)
}

// connect runs one full connect sequence: teardown, dial, handshake, loops.
// The caller holds lifeMu.
func (c *Client) connect(ctx context.Context) error {
	c.teardown(apperrors.ErrNotConnected)
	c.setState(StateConnecting)
	logger.Info("connecting to %s", c.opts.URL)

	sess, err := transport.Dial(ctx, c.opts.URL, transport.Options{
		Headers:       c.opts.Headers,
		Compression:   c.opts.Compression,
		AllowLoopback: c.opts.AllowLoopback,
	})
	if err != nil {
		c.setState(StateDisconnected)
		c.recordError(err)
		return err
	}

	rt := router.New()
	loopCtx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	c.mu.Lock()
	c.sess, c.rt, c.cancel, c.wg = sess, rt, cancel, wg
	c.mu.Unlock()

	// The receive loop must be pumping before the handshake so the
	// initialize response can reach its slot.
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.receiveLoop(loopCtx, sess, rt)
	}()

	if err := c.handshake(ctx); err != nil {
		err = classifyHandshakeError(sess, err)
		c.teardown(err)
		c.recordError(err)
		return err
	}

	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()
	c.setState(StateConnected)
	if v := c.Diagnostics().CLIVersion; v != "" {
		logger.Info("connected to %s (app-server %s)", c.opts.URL, v)
	} else {
		logger.Info("connected to %s", c.opts.URL)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pingLoop(loopCtx, sess)
	}()

	return nil
}

// teardown cancels the loops, closes the session, fails every pending
// request, and waits for both loops to exit. Safe to call repeatedly and
// from any lifecycle path.
func (c *Client) teardown(reason error) {
	c.mu.Lock()
	sess, rt, cancel, wg := c.sess, c.rt, c.cancel, c.wg
	c.sess, c.rt, c.cancel, c.wg = nil, nil, nil, nil
	c.activeTurns = make(map[string]string)
	c.serverReqs = nil
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		_ = sess.Close(transport.CloseNormal)
	}
	if rt != nil {
		rt.FailAll(reason)
	}
	if wg != nil {
		wg.Wait()
	}
	if changed {
		logger.Debug("connection state: %s", StateDisconnected)
		c.emit(Event{Type: EventStateChanged, State: StateDisconnected})
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		logger.Debug("connection state: %s", s)
		c.emit(Event{Type: EventStateChanged, State: s})
	}
}

func (c *Client) recordError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.emit(Event{Type: EventErrorOccurred, Err: err})
}

// send encodes and writes one envelope on the current session.
func (c *Client) send(env *jsonrpc.Envelope) error {
	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()
	if sess == nil {
		return apperrors.ErrNotConnected
	}

	frame, err := jsonrpc.Encode(env)
	if err != nil {
		return err
	}
	c.recordFrame(DirectionSend, frame)
	return sess.Send(frame)
}

func (c *Client) recordFrame(direction string, payload []byte) {
	if c.opts.Recorder != nil {
		c.opts.Recorder.RecordFrame(direction, payload)
	}
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		logger.Debug("event dropped (slow consumer): %s", ev.Type)
	}
}
