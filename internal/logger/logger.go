// ABOUTME: Leveled logging over the standard log package with a verbosity gate
// ABOUTME: Debug output is suppressed unless verbose mode is enabled

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var verbose atomic.Bool

// SetVerbose enables or disables DEBUG-level output
func SetVerbose(v bool) {
	verbose.Store(v)
}

// IsVerbose reports whether DEBUG-level output is enabled
func IsVerbose() bool {
	return verbose.Load()
}

// SetOutput redirects log output; nil restores stderr
func SetOutput(w io.Writer) {
	if w == nil {
		log.SetOutput(os.Stderr)
		return
	}
	log.SetOutput(w)
}

// Debug logs at DEBUG level (only shown when verbose)
func Debug(format string, args ...interface{}) {
	if verbose.Load() {
		log.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
	}
}

// Info logs at INFO level
func Info(format string, args ...interface{}) {
	log.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs at WARN level
func Warn(format string, args ...interface{}) {
	log.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs at ERROR level
func Error(format string, args ...interface{}) {
	log.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}
