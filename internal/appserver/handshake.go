// ABOUTME: Initialize handshake: identify the client, probe server info, gate on version
// ABOUTME: Result probing tries historical key paths in priority order; absence is tolerated

package appserver

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/harper/agentwire/internal/errors"
	"github.com/harper/agentwire/internal/jsonrpc"
	"github.com/harper/agentwire/internal/logger"
)

type clientInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
}

type clientCapabilities struct {
	// ExperimentalAPI unlocks the thread/turn method family on current
	// app-servers.
	ExperimentalAPI bool `json:"experimentalApi"`
}

type initializeParams struct {
	ClientInfo   clientInfo         `json:"clientInfo"`
	Capabilities clientCapabilities `json:"capabilities"`
}

// App-server releases have moved these fields around; each table is probed
// in order and the first hit that renders to a non-empty string wins.
var (
	versionPaths = [][]string{
		{"cliVersion"},
		{"serverInfo", "version"},
		{"userAgent", "version"},
		{"version"},
	}
	authPaths = [][]string{
		{"authStatus"},
		{"auth", "status"},
		{"account", "status"},
		{"authenticated"},
	}
	modelPaths = [][]string{
		{"currentModel"},
		{"model", "id"},
		{"config", "model"},
		{"model"},
	}
)

// handshake runs initialize/initialized and the version gate. The receive
// loop must already be pumping frames when this is called.
func (c *Client) handshake(ctx context.Context) error {
	params := initializeParams{
		ClientInfo: clientInfo{
			Name:    c.opts.ClientName,
			Title:   c.opts.ClientTitle,
			Version: c.opts.ClientVersion,
		},
		Capabilities: clientCapabilities{ExperimentalAPI: true},
	}

	result, err := c.Request(ctx, MethodInitialize, params)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	c.applyInitializeResult(result)

	if err := c.Notify(MethodInitialized, nil); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	c.mu.RLock()
	current := c.diag.CLIVersion
	minimum := c.diag.MinimumRequiredVersion
	c.mu.RUnlock()
	if current != "" && !isVersionAtLeast(current, minimum) {
		return &apperrors.IncompatibleVersionError{Current: current, Minimum: minimum}
	}

	return nil
}

// applyInitializeResult refreshes diagnostics from whatever shape the server
// returned.
func (c *Client) applyInitializeResult(result jsonrpc.Value) {
	version := probeString(result, versionPaths)
	auth := probeString(result, authPaths)
	model := probeString(result, modelPaths)

	c.mu.Lock()
	if version != "" {
		c.diag.CLIVersion = version
	}
	if auth != "" {
		c.diag.AuthStatus = auth
	}
	if model != "" {
		c.diag.CurrentModel = model
	}
	c.diag.LastCheckedAt = time.Now()
	c.mu.Unlock()

	logger.Debug("initialize result: version=%q auth=%q model=%q", version, auth, model)
	c.emit(Event{Type: EventDiagnosticsUpdated})
}

// probeString walks each candidate path and returns the first value that
// renders to a non-empty string.
func probeString(v jsonrpc.Value, paths [][]string) string {
	for _, path := range paths {
		if s := v.Lookup(path...).AsString(); s != "" {
			return s
		}
	}
	return ""
}
