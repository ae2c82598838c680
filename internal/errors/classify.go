// ABOUTME: Maps arbitrary failures into user-facing categories
// ABOUTME: Typed errors classify directly; opaque ones fall back to code/keyword heuristics

package errors

import (
	stderrors "errors"
	"fmt"
	"net"
	"strings"
)

// Category is the coarse bucket shown to users alongside an error message.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAuthentication
	CategoryConnection
	CategoryPermission
	CategoryCompatibility
	CategoryProtocol
)

func (c Category) String() string {
	switch c {
	case CategoryAuthentication:
		return "Authentication"
	case CategoryConnection:
		return "Connection"
	case CategoryPermission:
		return "Permission"
	case CategoryCompatibility:
		return "Compatibility"
	case CategoryProtocol:
		return "Protocol"
	default:
		return "Unknown"
	}
}

// Reserved range for JSON-RPC protocol errors (-32700 parse error through
// -32603 internal error).
const (
	reservedCodeMin = -32700
	reservedCodeMax = -32603
)

// Classify buckets err by inspecting its kind first, then falling back to
// code and keyword heuristics for opaque remote and transport errors.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var versionErr *IncompatibleVersionError
	if stderrors.As(err, &versionErr) {
		return CategoryCompatibility
	}

	var urlErr *InvalidURLError
	var hostErr *EndpointHostError
	var timeoutErr *TimeoutError
	var lostErr *ConnectionLostError
	if stderrors.As(err, &urlErr) || stderrors.As(err, &hostErr) ||
		stderrors.As(err, &timeoutErr) || stderrors.As(err, &lostErr) ||
		stderrors.Is(err, ErrNotConnected) {
		return CategoryConnection
	}

	var malformedErr *MalformedResponseError
	var unsupportedErr *UnsupportedMessageError
	if stderrors.As(err, &malformedErr) || stderrors.As(err, &unsupportedErr) {
		return CategoryProtocol
	}

	var remoteErr *RemoteError
	if stderrors.As(err, &remoteErr) {
		return classifyRemote(remoteErr)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return CategoryConnection
	}

	return keywordCategory(err.Error())
}

// classifyRemote applies the code rules before any message inspection:
// HTTP-style auth codes win, then the JSON-RPC reserved range, regardless of
// what the message text says.
func classifyRemote(err *RemoteError) Category {
	switch err.Code {
	case 401, 403:
		return CategoryAuthentication
	}
	if err.Code >= reservedCodeMin && err.Code <= reservedCodeMax {
		return CategoryProtocol
	}
	return keywordCategory(err.Message)
}

func keywordCategory(message string) Category {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "auth", "token", "login"):
		return CategoryAuthentication
	case containsAny(lower, "permission", "denied", "forbidden"):
		return CategoryPermission
	case containsAny(lower, "version", "unsupported"):
		return CategoryCompatibility
	default:
		return CategoryUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// FormatUser renders err as "[Category] message" for display.
func FormatUser(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("[%s] %s", Classify(err), err.Error())
}
