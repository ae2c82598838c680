// ABOUTME: Single-use WebSocket session: dial, framed send/receive, ping, close
// ABOUTME: Validates endpoint URLs and tracks whether any frame ever arrived

package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/harper/agentwire/internal/errors"
)

const (
	// maxFrameBytes bounds a single inbound frame.
	maxFrameBytes = 4 << 20

	// writeWait caps how long a control-frame write may block.
	writeWait = 10 * time.Second

	defaultHandshakeTimeout = 15 * time.Second
)

// Close codes for Session.Close.
const (
	CloseNormal    = websocket.CloseNormalClosure
	CloseGoingAway = websocket.CloseGoingAway
)

// Options configures a dial attempt.
type Options struct {
	// Headers are sent with the HTTP upgrade request (e.g. Authorization).
	Headers map[string]string

	// Compression offers permessage-deflate during the handshake. Some
	// proxies mishandle the extension negotiation; cmd/wsprobe diagnoses
	// that case.
	Compression bool

	// AllowLoopback skips the placeholder-host check for local development
	// against an app-server on the same machine.
	AllowLoopback bool

	HandshakeTimeout time.Duration
}

// placeholderHosts are listen-side addresses that cannot identify a remote
// machine. Seeing one configured as the endpoint means the app-server's own
// bind address was pasted in.
var placeholderHosts = map[string]bool{
	"0.0.0.0":   true,
	"::":        true,
	"127.0.0.1": true,
	"localhost": true,
}

// ValidateURL checks that rawURL is a usable remote websocket endpoint.
func ValidateURL(rawURL string, allowLoopback bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &apperrors.InvalidURLError{URL: rawURL}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return &apperrors.InvalidURLError{URL: rawURL}
	}
	host := u.Hostname()
	if host == "" {
		return &apperrors.InvalidURLError{URL: rawURL}
	}
	if !allowLoopback && placeholderHosts[host] {
		return &apperrors.EndpointHostError{Host: host}
	}
	return nil
}

// Session owns one WebSocket connection. Exactly one goroutine may call
// ReceiveNext at a time; Send and Ping are safe from any goroutine. A closed
// session cannot be reopened.
type Session struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	pong     chan struct{}
	done     chan struct{}
	gotFrame atomic.Bool
	closed   atomic.Bool
	once     sync.Once
}

// Dial validates rawURL, performs the WebSocket handshake, and returns a live
// session. No protocol handshake happens here; that is layered on top by the
// protocol client.
func Dial(ctx context.Context, rawURL string, opts Options) (*Session, error) {
	if err := ValidateURL(rawURL, opts.AllowLoopback); err != nil {
		return nil, err
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  timeout,
		EnableCompression: opts.Compression,
	}

	header := http.Header{}
	for k, v := range opts.Headers {
		header.Set(k, v)
	}

	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s failed (http %d): %w", rawURL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial %s failed: %w", rawURL, err)
	}

	s := &Session{
		conn: conn,
		pong: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	conn.SetReadLimit(maxFrameBytes)
	conn.SetPongHandler(func(string) error {
		select {
		case s.pong <- struct{}{}:
		default:
		}
		return nil
	})
	return s, nil
}

// Send writes one text frame. Safe for concurrent use.
func (s *Session) Send(payload []byte) error {
	if s.closed.Load() {
		return apperrors.ErrNotConnected
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// ReceiveNext blocks until the next data frame or a transport error. Control
// frames (ping/pong/close) are handled inside the read and never surface.
func (s *Session) ReceiveNext() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	s.gotFrame.Store(true)
	return data, nil
}

// Ping sends a websocket-level ping and waits for the pong, returning the
// round-trip time. A reader must be pumping ReceiveNext for the pong to be
// observed.
func (s *Session) Ping(timeout time.Duration) (time.Duration, error) {
	if s.closed.Load() {
		return 0, apperrors.ErrNotConnected
	}

	// Drop any pong left over from an earlier ping.
	select {
	case <-s.pong:
	default:
	}

	start := time.Now()
	if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		return 0, err
	}

	select {
	case <-s.pong:
		return time.Since(start), nil
	case <-time.After(timeout):
		return 0, fmt.Errorf("no pong within %s", timeout)
	case <-s.done:
		return 0, apperrors.ErrNotConnected
	}
}

// ReceivedFrame reports whether at least one data frame ever arrived on this
// session. A session that dies with this still false most likely failed at
// the handshake level, not from a network blip.
func (s *Session) ReceivedFrame() bool {
	return s.gotFrame.Load()
}

// Close sends a close frame with the given status code and tears down the
// connection. Safe to call more than once.
func (s *Session) Close(code int) error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
		msg := websocket.FormatCloseMessage(code, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = s.conn.Close()
	})
	return err
}
