package output

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

var (
	debugEnabled atomic.Bool
	debugOut     io.Writer = os.Stderr
)

func init() {
	debugEnabled.Store(os.Getenv("ONBOARD_DEBUG") == "1")
}

// SetDebug turns debug logging on or off.
func SetDebug(on bool) {
	debugEnabled.Store(on)
}

// DebugEnabled reports whether debug logging is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf writes a timestamped debug line to stderr when debug logging is on
// (ONBOARD_DEBUG=1 or debug: true in config).
func Debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(debugOut, "[DEBUG %s] %s\n", timestamp, fmt.Sprintf(format, args...))
}
