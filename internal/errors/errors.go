// ABOUTME: Error taxonomy for the app-server protocol engine
// ABOUTME: Typed failures for transport, handshake, request, and protocol layers

package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrNotConnected is returned when an operation needs a live connection and
// none exists. Pending requests drained during teardown fail with it too.
var ErrNotConnected = stderrors.New("not connected to app-server")

// InvalidURLError reports an endpoint URL whose scheme is not ws or wss.
type InvalidURLError struct {
	URL string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid endpoint url %q: scheme must be ws or wss", e.URL)
}

// EndpointHostError reports an endpoint host that cannot identify a remote
// machine (0.0.0.0, ::, 127.0.0.1, localhost). Such values usually mean the
// app-server printed its own listen address and it was pasted verbatim.
type EndpointHostError struct {
	Host string
}

func (e *EndpointHostError) Error() string {
	return fmt.Sprintf("endpoint host %q is not reachable from another device; use the machine's network address", e.Host)
}

// TimeoutError reports a request that received no response within the
// per-request window.
type TimeoutError struct {
	Method string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out waiting for a response", e.Method)
}

// RemoteError carries a JSON-RPC error object returned by the app-server.
type RemoteError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("app-server error %d: %s", e.Code, e.Message)
}

// IncompatibleVersionError reports an app-server CLI older than the minimum
// this client supports.
type IncompatibleVersionError struct {
	Current string
	Minimum string
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("app-server CLI version %s is older than the minimum supported %s", e.Current, e.Minimum)
}

// MalformedResponseError reports an inbound frame that could not be decoded
// as a JSON-RPC envelope.
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	if e.Detail == "" {
		return "malformed response from app-server"
	}
	return fmt.Sprintf("malformed response from app-server: %s", e.Detail)
}

// UnsupportedMessageError reports an inbound envelope whose shape is valid
// but whose meaning this client does not implement.
type UnsupportedMessageError struct {
	Method string
}

func (e *UnsupportedMessageError) Error() string {
	if e.Method == "" {
		return "unsupported message from app-server"
	}
	return fmt.Sprintf("unsupported message %q from app-server", e.Method)
}

// ConnectionLostError wraps the transport failure that ended a session.
// BeforeFirstFrame marks sessions that died without ever delivering a frame,
// which usually indicates a handshake-level incompatibility (for example a
// proxy mangling the websocket extension negotiation) rather than a network
// blip. That flag is a heuristic, not a guaranteed diagnosis.
type ConnectionLostError struct {
	BeforeFirstFrame bool
	Err              error
}

func (e *ConnectionLostError) Error() string {
	if e.BeforeFirstFrame {
		return fmt.Sprintf("connection lost before any frame was received (likely a handshake incompatibility): %v", e.Err)
	}
	return fmt.Sprintf("connection lost: %v", e.Err)
}

func (e *ConnectionLostError) Unwrap() error {
	return e.Err
}
