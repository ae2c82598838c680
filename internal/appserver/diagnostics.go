// ABOUTME: Connection health snapshot refreshed by the handshake and the ping loop
// ABOUTME: Zero values mean the field has not been observed yet

package appserver

import "time"

// Diagnostics is a point-in-time view of app-server health.
type Diagnostics struct {
	CLIVersion             string    `json:"cliVersion"`
	AuthStatus             string    `json:"authStatus"`
	CurrentModel           string    `json:"currentModel"`
	LastPingLatencyMs      int64     `json:"lastPingLatencyMs"`
	LastCheckedAt          time.Time `json:"lastCheckedAt"`
	MinimumRequiredVersion string    `json:"minimumRequiredVersion"`
}
