// Package debug provides frame-level protocol tracing that is off by default.
// Set SOCKETIO_DEBUG=1 (or call Enable) to log every frame sent and received.
package debug

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
)

var enabled atomic.Bool

func init() {
	if v, ok := os.LookupEnv("SOCKETIO_DEBUG"); ok {
		if val, err := strconv.ParseBool(v); err == nil {
			enabled.Store(val)
		}
	}
}

// Enabled reports whether tracing is on.
func Enabled() bool {
	return enabled.Load()
}

func Enable() {
	enabled.Store(true)
}

func Disable() {
	enabled.Store(false)
}

// Printf logs a formatted trace line on the default logger. Trace lines are
// emitted at info level so they show up without LOG_LEVEL=debug.
func Printf(format string, v ...any) {
	if !enabled.Load() {
		return
	}
	slog.Default().Log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, v...), slog.String("component", "socketio_trace"))
}
