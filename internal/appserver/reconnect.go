// ABOUTME: Liveness pinging and the backoff reconnect state machine
// ABOUTME: Version gates, config mistakes, and before-first-frame losses are never retried

package appserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/harper/agentwire/internal/errors"
	"github.com/harper/agentwire/internal/logger"
	"github.com/harper/agentwire/internal/transport"
)

const maxReconnectAttempts = 3

// pingLoop measures round-trip liveness on a fixed cadence and feeds
// failures into the reconnect path.
func (c *Client) pingLoop(ctx context.Context, sess *transport.Session) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		latency, err := sess.Ping(c.pingTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			lost := &apperrors.ConnectionLostError{
				BeforeFirstFrame: !sess.ReceivedFrame(),
				Err:              fmt.Errorf("liveness ping: %w", err),
			}
			go c.connectionLost(sess, lost)
			return
		}

		c.mu.Lock()
		c.diag.LastPingLatencyMs = latency.Milliseconds()
		c.diag.LastCheckedAt = time.Now()
		c.mu.Unlock()
		logger.Debug("ping round trip %s", latency)
		c.emit(Event{Type: EventDiagnosticsUpdated})
	}
}

// connectionLost is the single funnel for transport failures. The failed
// session pointer identifies its generation; a stale generation's failure is
// ignored because a newer connect or an explicit disconnect already handled
// that teardown.
func (c *Client) connectionLost(failed *transport.Session, lost *apperrors.ConnectionLostError) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.RLock()
	current := c.sess
	c.mu.RUnlock()
	if current != failed {
		return
	}

	logger.Warn("connection lost: %v", lost)
	c.teardown(lost)
	c.recordError(lost)
	c.scheduleReconnect(lost)
}

// scheduleReconnect decides whether cause deserves another automatic attempt
// and, if so, arms the backoff timer. The caller holds lifeMu.
func (c *Client) scheduleReconnect(cause error) {
	if !retriable(cause) {
		logger.Error("not retrying: %v", cause)
		return
	}

	c.mu.Lock()
	if !c.autoReconnect {
		c.mu.Unlock()
		return
	}
	if c.attempts >= maxReconnectAttempts {
		c.mu.Unlock()
		logger.Error("giving up after %d reconnect attempts: %v", maxReconnectAttempts, cause)
		return
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	delay := c.backoffDelay(attempt)
	logger.Info("reconnect attempt %d/%d in %s", attempt, maxReconnectAttempts, delay)
	go c.reconnectAfter(delay)
}

// reconnectAfter sleeps out the backoff and retries the full connect
// sequence, unless an explicit disconnect or a newer connect happened in the
// meantime.
func (c *Client) reconnectAfter(delay time.Duration) {
	time.Sleep(delay)

	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.RLock()
	proceed := c.autoReconnect && c.state == StateDisconnected
	c.mu.RUnlock()
	if !proceed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.connect(ctx); err != nil {
		logger.Warn("reconnect failed: %v", err)
		c.scheduleReconnect(err)
	}
}

// backoffDelay is 2^(attempt-1) base units: 1s, 2s, 4s at the default base.
func (c *Client) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<uint(attempt-1)) * c.backoffBase
}

// classifyHandshakeError tags transport-level handshake failures on sessions
// that never produced a frame, so the reconnect policy can tell a
// handshake-level mismatch from a transient outage. Timeouts, version gates,
// caller cancellation, and already-classified losses pass through untouched.
func classifyHandshakeError(sess *transport.Session, err error) error {
	if sess.ReceivedFrame() {
		return err
	}
	var lost *apperrors.ConnectionLostError
	if errors.As(err, &lost) {
		return err
	}
	var timeout *apperrors.TimeoutError
	if errors.As(err, &timeout) {
		return err
	}
	var version *apperrors.IncompatibleVersionError
	if errors.As(err, &version) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &apperrors.ConnectionLostError{BeforeFirstFrame: true, Err: err}
}

// retriable reports whether a failure class is worth another automatic
// attempt.
func retriable(err error) bool {
	var version *apperrors.IncompatibleVersionError
	if errors.As(err, &version) {
		return false
	}
	var lost *apperrors.ConnectionLostError
	if errors.As(err, &lost) && lost.BeforeFirstFrame {
		return false
	}
	var badURL *apperrors.InvalidURLError
	if errors.As(err, &badURL) {
		return false
	}
	var badHost *apperrors.EndpointHostError
	if errors.As(err, &badHost) {
		return false
	}
	return true
}
