// ABOUTME: Receive loop and inbound frame dispatch for one connection generation
// ABOUTME: Routes responses to the router and fans notifications into client state

package appserver

import (
	"context"
	"strings"

	apperrors "github.com/harper/agentwire/internal/errors"
	"github.com/harper/agentwire/internal/jsonrpc"
	"github.com/harper/agentwire/internal/logger"
	"github.com/harper/agentwire/internal/router"
	"github.com/harper/agentwire/internal/transport"
)

// receiveLoop pumps frames until the transport fails or the generation is
// cancelled. It is the session's only reader and the only writer of
// transcripts, active turns, and the server-request queue.
func (c *Client) receiveLoop(ctx context.Context, sess *transport.Session, rt *router.Router) {
	for {
		data, err := sess.ReceiveNext()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			lost := &apperrors.ConnectionLostError{
				BeforeFirstFrame: !sess.ReceivedFrame(),
				Err:              err,
			}
			// Fail pending requests here, not in connectionLost: a
			// handshake blocked on its response holds the lifecycle lock
			// and must unwind before connectionLost can take it.
			rt.FailAll(lost)
			go c.connectionLost(sess, lost)
			return
		}

		c.recordFrame(DirectionReceive, data)
		env, err := jsonrpc.Decode(data)
		if err != nil {
			logger.Warn("dropping undecodable frame: %v", err)
			c.recordError(err)
			continue
		}
		c.dispatch(env, rt)
	}
}

func (c *Client) dispatch(env *jsonrpc.Envelope, rt *router.Router) {
	switch env.Kind() {
	case jsonrpc.KindResponse:
		c.dispatchResponse(env, rt)
	case jsonrpc.KindRequest:
		c.queueServerRequest(env)
	case jsonrpc.KindNotification:
		c.handleNotification(env)
	default:
		err := &apperrors.MalformedResponseError{Detail: "envelope with id but no method, result, or error"}
		logger.Warn("%v", err)
		c.recordError(err)
	}
}

func (c *Client) dispatchResponse(env *jsonrpc.Envelope, rt *router.Router) {
	id, ok := env.IDInt64()
	if !ok {
		// Our requests always carry integer ids, so nothing can be waiting
		// on this one.
		logger.Debug("ignoring response with unmatchable id %s", string(*env.ID))
		return
	}

	if env.Error != nil {
		rt.Resolve(id, router.Result{Err: &apperrors.RemoteError{
			Code:    env.Error.Code,
			Message: env.Error.Message,
			Data:    env.Error.Data,
		}})
		return
	}
	rt.Resolve(id, router.Result{Payload: env.Result})
}

// handleNotification is the closed dispatch over known server notifications.
// Unknown methods are logged and dropped; the server's method set grows over
// time and must never break us.
func (c *Client) handleNotification(env *jsonrpc.Envelope) {
	params := jsonrpc.DecodeValue(env.Params)

	switch env.Method {
	case NotifyAgentMessageDelta, NotifyCommandOutputDelta:
		threadID := params.Get("threadId").AsString()
		delta := params.Get("delta").AsString()
		if threadID == "" || delta == "" {
			return
		}
		c.appendTranscript(threadID, delta)

	case NotifyTurnStarted:
		threadID := params.Get("threadId").AsString()
		turnID := params.Lookup("turn", "id").AsString()
		if threadID == "" || turnID == "" {
			return
		}
		c.mu.Lock()
		c.activeTurns[threadID] = turnID
		c.mu.Unlock()
		logger.Debug("turn %s started on thread %s", turnID, threadID)
		c.emit(Event{Type: EventTurnStarted, ThreadID: threadID, TurnID: turnID})

	case NotifyTurnCompleted:
		threadID := params.Get("threadId").AsString()
		turnID := params.Lookup("turn", "id").AsString()
		if threadID == "" {
			return
		}
		c.mu.Lock()
		delete(c.activeTurns, threadID)
		c.mu.Unlock()
		logger.Debug("turn %s completed on thread %s", turnID, threadID)
		c.emit(Event{Type: EventTurnCompleted, ThreadID: threadID, TurnID: turnID})

	case NotifyThreadStarted:
		threadID := params.Lookup("thread", "id").AsString()
		if threadID == "" {
			return
		}
		c.ensureThread(threadID)
		logger.Debug("thread %s started", threadID)
		c.emit(Event{Type: EventThreadStarted, ThreadID: threadID})

	case NotifyError:
		message := params.Lookup("error", "message").AsString()
		if message == "" {
			message = params.Get("message").AsString()
		}
		code := int(params.Lookup("error", "code").AsInt())
		err := &apperrors.RemoteError{Code: code, Message: message}
		logger.Warn("app-server error notification: %v", err)
		c.recordError(err)

	default:
		logger.Debug("ignoring notification %q", env.Method)
	}
}

// appendTranscript concatenates a streamed fragment onto a thread's
// transcript in arrival order.
func (c *Client) appendTranscript(threadID, delta string) {
	c.mu.Lock()
	b, ok := c.transcripts[threadID]
	if !ok {
		b = &strings.Builder{}
		c.transcripts[threadID] = b
	}
	b.WriteString(delta)
	c.mu.Unlock()
	c.emit(Event{Type: EventTranscriptAppended, ThreadID: threadID, Delta: delta})
}

func (c *Client) ensureThread(threadID string) {
	c.mu.Lock()
	if _, ok := c.transcripts[threadID]; !ok {
		c.transcripts[threadID] = &strings.Builder{}
	}
	c.mu.Unlock()
}
