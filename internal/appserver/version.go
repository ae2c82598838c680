// ABOUTME: Dotted-integer version comparison for the app-server compatibility gate
// ABOUTME: Missing trailing components count as zero and equality satisfies the minimum

package appserver

import (
	"strconv"
	"strings"
)

// MinimumAppServerVersion is the oldest app-server CLI this client can talk
// to. The thread/turn method family landed in 0.101.0.
const MinimumAppServerVersion = "0.101.0"

// clientVersion identifies this client in the initialize handshake.
const clientVersion = "0.1.0"

// isVersionAtLeast compares dotted integer components left to right, so
// "1.0" >= "0.101.0" and "0.101" is the same as "0.101.0".
func isVersionAtLeast(current, minimum string) bool {
	cur := strings.Split(strings.TrimSpace(current), ".")
	req := strings.Split(strings.TrimSpace(minimum), ".")

	n := len(cur)
	if len(req) > n {
		n = len(req)
	}
	for i := 0; i < n; i++ {
		c := versionComponent(cur, i)
		r := versionComponent(req, i)
		if c != r {
			return c > r
		}
	}
	return true
}

func versionComponent(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return n
}
