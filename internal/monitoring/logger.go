// Package monitoring carries the engine's diagnostic logging. Two
// streams: Logf for actionable events (call failures, policy
// decisions), Debugf for per-group tracing, which is muted unless the
// KDE_DEBUG environment variable is set.
package monitoring

import (
	"log"
	"os"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// debugEnabled is read once at startup; per-group tracing is too hot to
// consult the environment on every call.
var debugEnabled = os.Getenv("KDE_DEBUG") != ""

// DebugEnabled reports whether per-group trace logging is active.
func DebugEnabled() bool { return debugEnabled }

// SetDebug overrides the KDE_DEBUG gate, for tests.
func SetDebug(on bool) { debugEnabled = on }

// Debugf logs per-group trace output when debugging is enabled. It
// forwards to Logf so redirected loggers capture both streams.
func Debugf(format string, v ...interface{}) {
	if debugEnabled {
		Logf(format, v...)
	}
}
