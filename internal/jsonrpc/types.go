// ABOUTME: JSON-RPC 2.0 envelope types and the wire encoder/decoder
// ABOUTME: One Envelope struct covers requests, notifications, and responses

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"strconv"

	apperrors "github.com/harper/agentwire/internal/errors"
)

// Version is stamped on every envelope this client emits. Inbound envelopes
// that omit it are tolerated for compatibility with older app-servers.
const Version = "2.0"

// Envelope is one JSON-RPC message. Which fields are set determines its kind:
// method+id is a request, method alone a notification, id with result or
// error a response.
type Envelope struct {
	JSONRPC string           `json:"jsonrpc,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
	ID      *json.RawMessage `json:"id,omitempty"`
}

type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	ServerError    = -32000
)

// Kind classifies an envelope by its populated fields.
type Kind int

const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "invalid"
	}
}

// Kind reports what this envelope is. An envelope with an id but neither a
// method nor a result/error is invalid.
func (e *Envelope) Kind() Kind {
	hasID := e.ID != nil
	hasMethod := e.Method != ""
	hasReply := e.Error != nil || len(e.Result) > 0

	switch {
	case hasMethod && hasID:
		return KindRequest
	case hasMethod:
		return KindNotification
	case hasID && hasReply:
		return KindResponse
	default:
		return KindInvalid
	}
}

// NewRequest builds a request envelope with a numeric id.
func NewRequest(id int64, method string, params json.RawMessage) *Envelope {
	return &Envelope{JSONRPC: Version, Method: method, Params: params, ID: NumberID(id)}
}

// NewNotification builds a notification envelope (no id, no reply expected).
func NewNotification(method string, params json.RawMessage) *Envelope {
	return &Envelope{JSONRPC: Version, Method: method, Params: params}
}

// NewResponse builds a response envelope echoing the peer's id verbatim.
func NewResponse(id json.RawMessage, result json.RawMessage) *Envelope {
	echo := make(json.RawMessage, len(id))
	copy(echo, id)
	return &Envelope{JSONRPC: Version, Result: result, ID: &echo}
}

// NewErrorResponse builds an error response echoing the peer's id verbatim.
func NewErrorResponse(id json.RawMessage, rpcErr *Error) *Envelope {
	echo := make(json.RawMessage, len(id))
	copy(echo, id)
	return &Envelope{JSONRPC: Version, Error: rpcErr, ID: &echo}
}

// NumberID renders an integer request id as a raw JSON number.
func NumberID(id int64) *json.RawMessage {
	raw := json.RawMessage(strconv.FormatInt(id, 10))
	return &raw
}

// IDInt64 parses the envelope's id as an integer, accepting both JSON
// numbers and numeric strings.
func (e *Envelope) IDInt64() (int64, bool) {
	if e.ID == nil {
		return 0, false
	}

	var n int64
	if err := json.Unmarshal(*e.ID, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(*e.ID, &s); err == nil {
		if v, perr := strconv.ParseInt(s, 10, 64); perr == nil {
			return v, true
		}
	}
	return 0, false
}

// Encode serializes an envelope for the wire, stamping the protocol version.
func Encode(e *Envelope) ([]byte, error) {
	if e.JSONRPC == "" {
		e.JSONRPC = Version
	}
	return json.Marshal(e)
}

// Decode parses wire bytes into an envelope. The outer JSON must be an
// object; anything else is a malformed response.
func Decode(data []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &apperrors.MalformedResponseError{Detail: "outer JSON is not an object"}
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &apperrors.MalformedResponseError{Detail: err.Error()}
	}
	return &env, nil
}
